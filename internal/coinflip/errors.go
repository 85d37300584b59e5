package coinflip

import (
	"errors"
	"fmt"
)

// Errors returned by controller operations. Each one is a distinct, actionable
// failure of a single transition; none of them leaves partial state behind.
var (
	ErrDuplicateRoom             = errors.New("room already has a live game")
	ErrRoomNotFound              = errors.New("room not found")
	ErrWrongStatus               = errors.New("game is in the wrong status")
	ErrInvalidAmount             = errors.New("invalid amount")
	ErrTreasuryPaused            = errors.New("treasury is paused")
	ErrRandomnessNotReady        = errors.New("randomness is still being fulfilled")
	ErrAlreadyFinished           = errors.New("game already finished")
	ErrAlreadyClaimed            = errors.New("rewards already claimed")
	ErrUnauthorized              = errors.New("unauthorized")
	ErrInsufficientTreasuryFunds = errors.New("not enough treasury funds")

	ErrInvalidRoomID           = errors.New("invalid room id")
	ErrInvalidChoice           = errors.New("invalid player choice")
	ErrForceMismatch           = errors.New("force does not match the played game")
	ErrForceReused             = errors.New("force was already used")
	ErrRoomCooldown            = errors.New("room is cooling down")
	ErrNotInitialized          = errors.New("treasury not initialized")
	ErrAlreadyInitialized      = errors.New("treasury already initialized")
	ErrArithmeticOverflow      = errors.New("arithmetic overflow")
	ErrInsufficientPlayerFunds = errors.New("not enough account funds")
	ErrNotExpired              = errors.New("game has not expired")
	ErrOracleUnavailable       = errors.New("randomness oracle unavailable")
)

// codes are the stable wire names of the errors above.
var codes = []struct {
	code string
	err  error
}{
	{"DuplicateRoom", ErrDuplicateRoom},
	{"RoomNotFound", ErrRoomNotFound},
	{"WrongStatus", ErrWrongStatus},
	{"InvalidAmount", ErrInvalidAmount},
	{"TreasuryPaused", ErrTreasuryPaused},
	{"RandomnessNotReady", ErrRandomnessNotReady},
	{"AlreadyFinished", ErrAlreadyFinished},
	{"AlreadyClaimed", ErrAlreadyClaimed},
	{"Unauthorized", ErrUnauthorized},
	{"InsufficientTreasuryFunds", ErrInsufficientTreasuryFunds},
	{"InvalidRoomID", ErrInvalidRoomID},
	{"InvalidChoice", ErrInvalidChoice},
	{"ForceMismatch", ErrForceMismatch},
	{"ForceReused", ErrForceReused},
	{"RoomCooldown", ErrRoomCooldown},
	{"NotInitialized", ErrNotInitialized},
	{"AlreadyInitialized", ErrAlreadyInitialized},
	{"ArithmeticOverflow", ErrArithmeticOverflow},
	{"InsufficientPlayerFunds", ErrInsufficientPlayerFunds},
	{"NotExpired", ErrNotExpired},
	{"OracleUnavailable", ErrOracleUnavailable},
}

// CodeInternal is reported for errors outside the taxonomy.
const CodeInternal = "Internal"

// Code returns the wire code for err.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// FromCode rebuilds an error from its wire code so errors.Is works on the
// receiving side.
func FromCode(code, message string) error {
	for _, c := range codes {
		if c.code == code {
			if message == "" || message == c.err.Error() {
				return c.err
			}
			return &wireError{sentinel: c.err, message: message}
		}
	}
	return fmt.Errorf("%s: %s", code, message)
}

// Retryable reports whether the same call may succeed later without any
// other action: randomness pending, oracle unreachable, or room cooling down.
func Retryable(err error) bool {
	return errors.Is(err, ErrRandomnessNotReady) ||
		errors.Is(err, ErrOracleUnavailable) ||
		errors.Is(err, ErrRoomCooldown)
}

type wireError struct {
	sentinel error
	message  string
}

func (e *wireError) Error() string { return e.message }
func (e *wireError) Unwrap() error { return e.sentinel }
