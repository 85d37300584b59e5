package ledger

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the base unit scale of the house currency.
const LamportsPerSOL = 1_000_000_000

const solDecimals = 9

// ParseSOL converts a decimal SOL amount such as "0.05" to lamports.
func ParseSOL(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse SOL amount %q: %w", s, err)
	}
	if d.Sign() < 0 {
		return 0, fmt.Errorf("%w: negative SOL amount %q", ErrInvalidAmount, s)
	}
	lamports := d.Shift(solDecimals)
	if !lamports.Equal(lamports.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, solDecimals)
	}
	n := lamports.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: %q", ErrOverflow, s)
	}
	return n.Uint64(), nil
}

// FormatSOL renders lamports as a decimal SOL amount without trailing zeros.
func FormatSOL(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -solDecimals).String()
}
