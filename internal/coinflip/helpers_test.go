package coinflip

import (
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/ryanschwarting/coinflip/internal/oracle"
	"github.com/ryanschwarting/coinflip/internal/store"
)

const (
	authority = "house"
	alice     = "alice"
	bob       = "bob"

	bet = 100_000_000 // 0.1 SOL
)

type harness struct {
	ctx    context.Context
	ctrl   *Controller
	oracle *oracle.Manual
	clock  *quartz.Mock
	store  store.Store
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// newHarness returns a controller with an initialized house holding house
// lamports and alice and bob holding one SOL each.
func newHarness(t *testing.T, house uint64, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		ctx:    context.Background(),
		oracle: oracle.NewManual(),
		clock:  quartz.NewMock(t),
		store:  store.NewMemory(),
	}
	opts = append([]Option{WithClock(h.clock)}, opts...)
	h.ctrl = New(h.store, h.oracle, testLogger(), opts...)

	_, err := h.ctrl.InitializeHouse(h.ctx, authority)
	require.NoError(t, err)
	if house > 0 {
		_, err = h.ctrl.Airdrop(h.ctx, authority, authority, house)
		require.NoError(t, err)
		_, err = h.ctrl.FundTreasury(h.ctx, authority, house)
		require.NoError(t, err)
	}
	for _, p := range []string{alice, bob} {
		_, err = h.ctrl.Airdrop(h.ctx, authority, p, LamportsPerSOL)
		require.NoError(t, err)
	}
	return h
}

func (h *harness) balance(t *testing.T, owner string) uint64 {
	t.Helper()
	b, err := h.ctrl.Balance(owner)
	require.NoError(t, err)
	return b
}

func (h *harness) treasury(t *testing.T) uint64 {
	t.Helper()
	tr, err := h.ctrl.Treasury()
	require.NoError(t, err)
	return tr.Balance
}

// play creates and plays a game, returning the force used.
func (h *harness) play(t *testing.T, player, room string, choice Choice, amount uint64) oracle.Seed {
	t.Helper()
	force := forceOf(room)
	_, err := h.ctrl.CreateAndPlay(h.ctx, CreateParams{Player: player, RoomID: room, Amount: amount, Choice: choice}, force)
	require.NoError(t, err)
	return force
}

// settle fulfills a played game with value and finalizes it.
func (h *harness) settle(t *testing.T, room string, force oracle.Seed, value uint64) *Game {
	t.Helper()
	h.oracle.Fulfill(force, randomness(value))
	g, err := h.ctrl.Finalize(h.ctx, room, force)
	require.NoError(t, err)
	return g
}

// randomness returns oracle output whose first eight bytes encode v.
func randomness(v uint64) []byte {
	out := make([]byte, oracle.RandomnessSize)
	binary.LittleEndian.PutUint64(out, v)
	for i := 8; i < len(out); i++ {
		out[i] = byte(i)
	}
	return out
}

func forceOf(room string) oracle.Seed {
	var s oracle.Seed
	copy(s[:], "force:"+room)
	return s
}
