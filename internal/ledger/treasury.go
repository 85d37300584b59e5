package ledger

import (
	"fmt"
)

// PayoutMultiple is how many stakes a winning game is paid.
const PayoutMultiple = 2

// Treasury is the pooled house account.
//
// Locked is the sum of what the treasury may still owe to games that are not
// yet paid out: the worst case 2*stake while a game is unresolved, the actual
// payout once it is finalized. Balance never drops below Locked.
type Treasury struct {
	Authority   string `json:"authority"`
	Initialized bool   `json:"initialized"`
	Paused      bool   `json:"paused"`
	Balance     uint64 `json:"balance"`
	Locked      uint64 `json:"locked"`

	// Running totals, kept for the conservation audit.
	Funded    uint64 `json:"funded"`
	Staked    uint64 `json:"staked"`
	PaidOut   uint64 `json:"paid_out"`
	Refunded  uint64 `json:"refunded"`
	Withdrawn uint64 `json:"withdrawn"`
}

// Free is the balance not reserved for in-flight games.
func (t Treasury) Free() uint64 {
	if t.Locked > t.Balance {
		return 0
	}
	return t.Balance - t.Locked
}

// Fund adds house money.
func (t *Treasury) Fund(amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	balance, err := Add(t.Balance, amount)
	if err != nil {
		return err
	}
	funded, err := Add(t.Funded, amount)
	if err != nil {
		return err
	}
	t.Balance, t.Funded = balance, funded
	return nil
}

// Escrow takes a player's stake and locks the worst-case payout for it. The
// free balance must cover that payout before the stake arrives.
func (t *Treasury) Escrow(stake uint64) error {
	if stake == 0 {
		return ErrInvalidAmount
	}
	liability, err := Mul(stake, PayoutMultiple)
	if err != nil {
		return err
	}
	if t.Free() < liability {
		return fmt.Errorf("%w: free %d, bet needs %d", ErrInsufficientFunds, t.Free(), liability)
	}
	balance, err := Add(t.Balance, stake)
	if err != nil {
		return err
	}
	locked, err := Add(t.Locked, liability)
	if err != nil {
		return err
	}
	staked, err := Add(t.Staked, stake)
	if err != nil {
		return err
	}
	t.Balance, t.Locked, t.Staked = balance, locked, staked
	return nil
}

// Resolve replaces a game's worst-case lock with the payout it actually owes.
func (t *Treasury) Resolve(stake, owed uint64) error {
	liability, err := Mul(stake, PayoutMultiple)
	if err != nil {
		return err
	}
	if owed > liability {
		return fmt.Errorf("%w: owed %d exceeds lock %d", ErrOverflow, owed, liability)
	}
	locked, err := Sub(t.Locked, liability)
	if err != nil {
		return err
	}
	t.Locked = locked + owed
	return nil
}

// Pay releases a resolved payout to a player.
func (t *Treasury) Pay(amount uint64) error {
	if amount > t.Locked || amount > t.Balance {
		return fmt.Errorf("%w: pay %d, locked %d, balance %d", ErrInsufficientFunds, amount, t.Locked, t.Balance)
	}
	paid, err := Add(t.PaidOut, amount)
	if err != nil {
		return err
	}
	t.Balance -= amount
	t.Locked -= amount
	t.PaidOut = paid
	return nil
}

// Refund returns the stake of an unresolved game and drops its lock.
func (t *Treasury) Refund(stake uint64) error {
	liability, err := Mul(stake, PayoutMultiple)
	if err != nil {
		return err
	}
	if liability > t.Locked || stake > t.Balance {
		return fmt.Errorf("%w: refund %d, locked %d, balance %d", ErrInsufficientFunds, stake, t.Locked, t.Balance)
	}
	refunded, err := Add(t.Refunded, stake)
	if err != nil {
		return err
	}
	t.Locked -= liability
	t.Balance -= stake
	t.Refunded = refunded
	return nil
}

// Withdraw removes house money, keeping reserve plus all locked funds behind.
func (t *Treasury) Withdraw(amount, reserve uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	need, err := Add(amount, reserve)
	if err != nil {
		return err
	}
	if t.Free() < need {
		return fmt.Errorf("%w: free %d, reserve %d, requested %d", ErrInsufficientFunds, t.Free(), reserve, amount)
	}
	withdrawn, err := Add(t.Withdrawn, amount)
	if err != nil {
		return err
	}
	t.Balance -= amount
	t.Withdrawn = withdrawn
	return nil
}

// Audit checks the accounting identity
//
//	balance = funded + staked - paid out - refunded - withdrawn
//
// and that locked liabilities are covered.
func (t Treasury) Audit() error {
	in, err := Add(t.Funded, t.Staked)
	if err != nil {
		return err
	}
	out, err := Add(t.PaidOut, t.Refunded)
	if err != nil {
		return err
	}
	out, err = Add(out, t.Withdrawn)
	if err != nil {
		return err
	}
	if in < out || in-out != t.Balance {
		return fmt.Errorf("treasury audit: balance %d, expected %d+%d-%d-%d-%d",
			t.Balance, t.Funded, t.Staked, t.PaidOut, t.Refunded, t.Withdrawn)
	}
	if t.Locked > t.Balance {
		return fmt.Errorf("treasury audit: locked %d exceeds balance %d", t.Locked, t.Balance)
	}
	return nil
}
