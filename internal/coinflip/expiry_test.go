package coinflip

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanschwarting/coinflip/internal/oracle"
	"github.com/ryanschwarting/coinflip/internal/outcome"
)

func TestCancelWaitingGame(t *testing.T) {
	h := newHarness(t, house)
	_, err := h.ctrl.Create(h.ctx, CreateParams{Player: alice, RoomID: "r1", Amount: bet, Choice: Option1})
	require.NoError(t, err)

	_, err = h.ctrl.Cancel(h.ctx, bob, "r1")
	require.ErrorIs(t, err, ErrUnauthorized)

	g, err := h.ctrl.Cancel(h.ctx, alice, "r1")
	require.NoError(t, err)
	assert.Equal(t, Finished, g.Status)
	assert.Equal(t, outcome.Void, g.Result)
	assert.True(t, g.Settled())
	assert.Equal(t, uint64(LamportsPerSOL), h.balance(t, alice))
	assert.Equal(t, uint64(house), h.treasury(t))
	require.NoError(t, h.ctrl.Audit())

	_, err = h.ctrl.Claim(h.ctx, alice, "r1")
	require.ErrorIs(t, err, ErrAlreadyClaimed)
}

func TestCancelPlayedGame(t *testing.T) {
	h := newHarness(t, house)
	h.play(t, alice, "r1", Option1, bet)

	_, err := h.ctrl.Cancel(h.ctx, alice, "r1")
	require.ErrorIs(t, err, ErrWrongStatus)
}

func TestExpireWaitingGame(t *testing.T) {
	h := newHarness(t, house)
	_, err := h.ctrl.Create(h.ctx, CreateParams{Player: alice, RoomID: "r1", Amount: bet, Choice: Option1})
	require.NoError(t, err)

	ttl := h.ctrl.Limits().WaitingTTL
	h.clock.Advance(ttl - time.Second).MustWait(h.ctx)
	_, err = h.ctrl.Expire(h.ctx, "r1")
	require.ErrorIs(t, err, ErrNotExpired)

	h.clock.Advance(time.Second).MustWait(h.ctx)
	g, err := h.ctrl.Expire(h.ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, outcome.Void, g.Result)
	assert.Equal(t, uint64(LamportsPerSOL), h.balance(t, alice))
	require.NoError(t, h.ctrl.Audit())

	_, err = h.ctrl.Expire(h.ctx, "r1")
	require.ErrorIs(t, err, ErrAlreadyFinished)
}

func TestExpireStuckProcessingGame(t *testing.T) {
	h := newHarness(t, house)
	force := h.play(t, alice, "r1", Option1, bet)

	timeout := h.ctrl.Limits().ProcessingTimeout
	h.clock.Advance(timeout / 2).MustWait(h.ctx)
	_, err := h.ctrl.Expire(h.ctx, "r1")
	require.ErrorIs(t, err, ErrNotExpired)

	h.clock.Advance(timeout / 2).MustWait(h.ctx)
	g, err := h.ctrl.Expire(h.ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, outcome.Void, g.Result)
	assert.Equal(t, uint64(LamportsPerSOL), h.balance(t, alice))

	// Late randomness cannot reopen a voided game.
	h.oracle.Fulfill(force, randomness(50))
	_, err = h.ctrl.Finalize(h.ctx, "r1", force)
	require.ErrorIs(t, err, ErrAlreadyFinished)
	require.NoError(t, h.ctrl.Audit())
}

func TestExpireFulfilledGameMustFinalize(t *testing.T) {
	h := newHarness(t, house)
	force := h.play(t, alice, "r1", Option1, bet)
	h.oracle.Fulfill(force, randomness(50))

	h.clock.Advance(h.ctrl.Limits().ProcessingTimeout).MustWait(h.ctx)
	_, err := h.ctrl.Expire(h.ctx, "r1")
	require.ErrorIs(t, err, ErrWrongStatus)

	g, err := h.ctrl.Finalize(h.ctx, "r1", force)
	require.NoError(t, err)
	assert.Equal(t, outcome.Option1Wins, g.Result)
}

// unreachableOracle answers requests but fails every status check.
type unreachableOracle struct {
	*oracle.Manual
}

func (unreachableOracle) IsFulfilled(ctx context.Context, seed oracle.Seed) (bool, error) {
	return false, oracle.ErrUnavailable
}

func TestExpireWithOracleDown(t *testing.T) {
	h := newHarness(t, house)
	h.ctrl = New(h.store, unreachableOracle{h.oracle}, testLogger(), WithClock(h.clock))
	h.play(t, alice, "r1", Option1, bet)

	h.clock.Advance(h.ctrl.Limits().ProcessingTimeout).MustWait(h.ctx)
	g, err := h.ctrl.Expire(h.ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, outcome.Void, g.Result)
	assert.Equal(t, uint64(LamportsPerSOL), h.balance(t, alice))
}
