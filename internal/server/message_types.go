package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
const (
	// Client to server messages
	MessageTypeAuth            MessageType = "auth"
	MessageTypeInitializeHouse MessageType = "initialize_house"
	MessageTypeFundTreasury    MessageType = "fund_treasury"
	MessageTypeWithdraw        MessageType = "withdraw_house_funds"
	MessageTypeTogglePause     MessageType = "toggle_pause"
	MessageTypeAirdrop         MessageType = "airdrop"
	MessageTypeCreate          MessageType = "create_coinflip"
	MessageTypePlay            MessageType = "play_coinflip"
	MessageTypeCreateAndPlay   MessageType = "create_and_play_coinflip"
	MessageTypeFinalize        MessageType = "finalize_game"
	MessageTypeClaim           MessageType = "claim_rewards"
	MessageTypeCancel          MessageType = "cancel_game"
	MessageTypeExpire          MessageType = "expire_game"
	MessageTypeGetGame         MessageType = "get_game"
	MessageTypeGetReceipts     MessageType = "get_receipts"
	MessageTypeListGames       MessageType = "list_games"
	MessageTypeGetTreasury     MessageType = "get_treasury"
	MessageTypeGetBalance      MessageType = "get_balance"

	// Server to client messages
	MessageTypeAuthResponse MessageType = "auth_response"
	MessageTypeResult       MessageType = "result"
	MessageTypeError        MessageType = "error"
	MessageTypeEvent        MessageType = "event"
)

// Protocol error codes. Domain failures use the coinflip error codes.
const (
	CodeInvalidMessage   = "invalid_message"
	CodeUnknownType      = "unknown_message_type"
	CodeNotAuthenticated = "not_authenticated"
	CodeInvalidAuth      = "invalid_auth"
	CodeAuthUnavailable  = "auth_unavailable"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
