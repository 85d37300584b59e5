package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/ryanschwarting/coinflip/internal/coinflip"
	"github.com/ryanschwarting/coinflip/internal/oracle"
)

// Finalizer settles a played game. *Client and *coinflip.Controller both
// satisfy it.
type Finalizer interface {
	Finalize(ctx context.Context, roomID string, force oracle.Seed) (*coinflip.Game, error)
}

// Poller retries Finalize while randomness is still being fulfilled.
type Poller struct {
	Attempts int
	Interval time.Duration
	Clock    quartz.Clock
	Logger   *log.Logger
}

// NewPoller returns a poller with the default schedule: 30 attempts, two
// seconds apart.
func NewPoller(logger *log.Logger) *Poller {
	return &Poller{
		Attempts: 30,
		Interval: 2 * time.Second,
		Clock:    quartz.NewReal(),
		Logger:   logger.WithPrefix("poll"),
	}
}

// Finalize calls f.Finalize until it succeeds, fails with anything other than
// ErrRandomnessNotReady, or runs out of attempts.
func (p *Poller) Finalize(ctx context.Context, f Finalizer, roomID string, force oracle.Seed) (*coinflip.Game, error) {
	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		g, err := f.Finalize(ctx, roomID, force)
		if err == nil {
			return g, nil
		}
		if !errors.Is(err, coinflip.ErrRandomnessNotReady) {
			return nil, err
		}
		lastErr = err
		p.Logger.Debug("Randomness not ready", "room", roomID, "attempt", attempt)

		if attempt == p.Attempts {
			break
		}
		timer := p.Clock.NewTimer(p.Interval, "poll")
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("gave up after %d attempts: %w", p.Attempts, lastErr)
}
