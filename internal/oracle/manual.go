package oracle

import (
	"context"
	"fmt"
	"sync"
)

// Manual is an oracle whose fulfillments are set by hand. It is the test double
// for deterministic settlement tests.
type Manual struct {
	mu         sync.Mutex
	requested  map[Seed]string
	values     map[Seed][]byte
	requestErr error
	seq        int
}

// NewManual returns an empty manual oracle.
func NewManual() *Manual {
	return &Manual{
		requested: make(map[Seed]string),
		values:    make(map[Seed][]byte),
	}
}

// FailRequests makes every later Request return err. Pass nil to clear.
func (m *Manual) FailRequests(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestErr = err
}

// Fulfill sets the random value for seed. The seed need not have been requested.
func (m *Manual) Fulfill(seed Seed, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[seed] = append([]byte(nil), value...)
}

// Requests is how many requests have been accepted.
func (m *Manual) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requested)
}

// Requested reports whether seed has been requested.
func (m *Manual) Requested(seed Seed) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.requested[seed]
	return ok
}

func (m *Manual) Request(ctx context.Context, seed Seed) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.requestErr != nil {
		return "", m.requestErr
	}
	if _, ok := m.requested[seed]; ok {
		return "", fmt.Errorf("%w: %s", ErrAlreadyRequested, seed)
	}
	m.seq++
	id := fmt.Sprintf("manual-%d", m.seq)
	m.requested[seed] = id
	return id, nil
}

func (m *Manual) IsFulfilled(ctx context.Context, seed Seed) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.requested[seed]; !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownRequest, seed)
	}
	_, ok := m.values[seed]
	return ok, nil
}

func (m *Manual) Randomness(ctx context.Context, seed Seed) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.requested[seed]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRequest, seed)
	}
	v, ok := m.values[seed]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFulfilled, seed)
	}
	return append([]byte(nil), v...), nil
}
