package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSOL(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"0.05", 50_000_000},
		{"10", 10 * LamportsPerSOL},
		{"0.000000001", 1},
		{"1.5", 1_500_000_000},
		{"0", 0},
	}
	for _, tt := range tests {
		got, err := ParseSOL(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseSOLRejects(t *testing.T) {
	_, err := ParseSOL("0.0000000001")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseSOL("-1")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseSOL("99999999999999")
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = ParseSOL("one")
	assert.Error(t, err)
}

func TestFormatSOL(t *testing.T) {
	assert.Equal(t, "0.05", FormatSOL(50_000_000))
	assert.Equal(t, "10", FormatSOL(10*LamportsPerSOL))
	assert.Equal(t, "0.000000001", FormatSOL(1))
	assert.Equal(t, "0", FormatSOL(0))
}
