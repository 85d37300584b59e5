// Package ledger holds the treasury and account balance types.
//
// Every transition validates before it mutates: a method that returns an error
// leaves its receiver untouched, so callers can apply several transitions to
// copies and commit only when all of them succeed.
package ledger

import (
	"errors"
	"fmt"
	"math/bits"
)

var (
	// ErrInsufficientFunds indicates a debit larger than the available balance.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrOverflow indicates a balance would leave the uint64 range.
	ErrOverflow = errors.New("ledger: arithmetic overflow")

	// ErrInvalidAmount indicates a zero amount where a positive one is required.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
)

// Add returns a+b or ErrOverflow.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Sub returns a-b or ErrOverflow when b > a.
func Sub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrOverflow
	}
	return diff, nil
}

// Mul returns a*b or ErrOverflow.
func Mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

// Account is an identity's spendable balance.
type Account struct {
	Owner   string `json:"owner"`
	Balance uint64 `json:"balance"`
}

// Credit adds amount to the account.
func (a *Account) Credit(amount uint64) error {
	next, err := Add(a.Balance, amount)
	if err != nil {
		return err
	}
	a.Balance = next
	return nil
}

// Debit removes amount from the account.
func (a *Account) Debit(amount uint64) error {
	if amount > a.Balance {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, a.Owner, a.Balance, amount)
	}
	a.Balance -= amount
	return nil
}
