package coinflip

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ryanschwarting/coinflip/internal/randutil"
)

// TestConservationUnderRandomPlay drives random operations against the
// controller and checks after each one that no lamport is created or lost.
func TestConservationUnderRandomPlay(t *testing.T) {
	for _, seed := range []int64{1, 7, 42} {
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			h := newHarness(t, 5*LamportsPerSOL)
			rng := randutil.New(seed)
			players := []string{alice, bob}
			rooms := []string{"r0", "r1", "r2", "r3"}
			forces := 0

			total := func() uint64 {
				tr, err := h.ctrl.Treasury()
				require.NoError(t, err)
				sum := tr.Balance
				for _, p := range append(players, authority) {
					sum += h.balance(t, p)
				}
				return sum
			}
			want := total()

			for step := 0; step < 300; step++ {
				player := players[rng.IntN(len(players))]
				room := rooms[rng.IntN(len(rooms))]
				amount := h.ctrl.Limits().MinBet * uint64(1+rng.IntN(4))

				// Errors are expected; only the invariants matter.
				switch rng.IntN(7) {
				case 0:
					_, _ = h.ctrl.Create(h.ctx, CreateParams{Player: player, RoomID: room, Amount: amount, Choice: Choice(1 + rng.IntN(2))})
				case 1:
					forces++
					_, _ = h.ctrl.CreateAndPlay(h.ctx, CreateParams{Player: player, RoomID: room, Amount: amount, Choice: Choice(1 + rng.IntN(2))}, forceOf(fmt.Sprintf("%d", forces)))
				case 2:
					forces++
					_, _ = h.ctrl.Play(h.ctx, player, room, forceOf(fmt.Sprintf("%d", forces)))
				case 3:
					if g, err := h.ctrl.Game(room); err == nil && g.Force != nil {
						h.oracle.Fulfill(*g.Force, randomness(rng.Uint64()))
						_, _ = h.ctrl.Finalize(h.ctx, room, *g.Force)
					}
				case 4:
					_, _ = h.ctrl.Claim(h.ctx, player, room)
				case 5:
					_, _ = h.ctrl.Expire(h.ctx, room)
				case 6:
					h.clock.Advance(h.ctrl.Limits().RoomCooldown).MustWait(h.ctx)
				}

				require.NoError(t, h.ctrl.Audit(), "step %d", step)
				require.Equal(t, want, total(), "step %d", step)
			}
		})
	}
}
