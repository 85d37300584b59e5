package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func funded(t *testing.T, amount uint64) Treasury {
	t.Helper()
	tr := Treasury{Authority: "house", Initialized: true}
	require.NoError(t, tr.Fund(amount))
	return tr
}

func TestFund(t *testing.T) {
	tr := funded(t, 1000)
	assert.Equal(t, uint64(1000), tr.Balance)
	assert.ErrorIs(t, tr.Fund(0), ErrInvalidAmount)

	tr.Balance = math.MaxUint64
	assert.ErrorIs(t, tr.Fund(1), ErrOverflow)
}

func TestEscrowRequiresCoverage(t *testing.T) {
	tr := funded(t, 199)
	before := tr
	err := tr.Escrow(100)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, before, tr, "failed escrow must not mutate")

	tr = funded(t, 200)
	require.NoError(t, tr.Escrow(100))
	assert.Equal(t, uint64(300), tr.Balance)
	assert.Equal(t, uint64(200), tr.Locked)
	assert.Equal(t, uint64(100), tr.Free())
	require.NoError(t, tr.Audit())
}

func TestSettlementPaths(t *testing.T) {
	tests := []struct {
		name        string
		owed        uint64
		wantBalance uint64
	}{
		{"win", 200, 1000 - 100},
		{"tie", 100, 1000},
		{"loss", 0, 1000 + 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := funded(t, 1000)
			require.NoError(t, tr.Escrow(100))
			require.NoError(t, tr.Resolve(100, tt.owed))
			assert.Equal(t, tt.owed, tr.Locked)
			if tt.owed > 0 {
				require.NoError(t, tr.Pay(tt.owed))
			}
			assert.Equal(t, tt.wantBalance, tr.Balance)
			assert.Zero(t, tr.Locked)
			require.NoError(t, tr.Audit())
		})
	}
}

func TestResolveRejectsOverpay(t *testing.T) {
	tr := funded(t, 1000)
	require.NoError(t, tr.Escrow(100))
	assert.ErrorIs(t, tr.Resolve(100, 201), ErrOverflow)
}

func TestPayLimitedToLocked(t *testing.T) {
	tr := funded(t, 1000)
	assert.ErrorIs(t, tr.Pay(1), ErrInsufficientFunds)
}

func TestRefund(t *testing.T) {
	tr := funded(t, 1000)
	require.NoError(t, tr.Escrow(100))
	require.NoError(t, tr.Refund(100))
	assert.Equal(t, uint64(1000), tr.Balance)
	assert.Zero(t, tr.Locked)
	require.NoError(t, tr.Audit())

	assert.ErrorIs(t, tr.Refund(100), ErrInsufficientFunds)
}

func TestWithdraw(t *testing.T) {
	tr := funded(t, 1000)
	require.NoError(t, tr.Escrow(100)) // balance 1100, locked 200

	assert.ErrorIs(t, tr.Withdraw(901, 0), ErrInsufficientFunds)
	assert.ErrorIs(t, tr.Withdraw(800, 101), ErrInsufficientFunds)
	assert.ErrorIs(t, tr.Withdraw(0, 0), ErrInvalidAmount)

	require.NoError(t, tr.Withdraw(900, 0))
	assert.Equal(t, uint64(200), tr.Balance)
	assert.Equal(t, tr.Locked, tr.Balance)
	require.NoError(t, tr.Audit())
}

func TestAuditDetectsDrift(t *testing.T) {
	tr := funded(t, 1000)
	tr.Balance++
	assert.Error(t, tr.Audit())

	tr = funded(t, 1000)
	tr.Locked = 1001
	assert.Error(t, tr.Audit())
}

func TestAccount(t *testing.T) {
	a := Account{Owner: "alice"}
	require.NoError(t, a.Credit(50))
	assert.ErrorIs(t, a.Debit(51), ErrInsufficientFunds)
	assert.Equal(t, uint64(50), a.Balance)
	require.NoError(t, a.Debit(50))
	assert.Zero(t, a.Balance)

	a.Balance = math.MaxUint64
	assert.ErrorIs(t, a.Credit(1), ErrOverflow)
}

func TestCheckedMath(t *testing.T) {
	_, err := Add(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrOverflow)
	_, err = Sub(1, 2)
	assert.ErrorIs(t, err, ErrOverflow)
	_, err = Mul(math.MaxUint64, 2)
	assert.ErrorIs(t, err, ErrOverflow)
	v, err := Mul(3, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), v)
}
