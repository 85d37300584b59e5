package oracle

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/ryanschwarting/coinflip/internal/address"
)

// Local is an in-process VRF. It signs each seed with an ed25519 key and
// derives the random value from the signature, so anyone holding the public
// key can verify a fulfillment. Requests become fulfilled after a fixed delay
// measured on the injected clock.
type Local struct {
	mu       sync.Mutex
	key      ed25519.PrivateKey
	delay    time.Duration
	clock    quartz.Clock
	logger   *log.Logger
	requests map[address.Address]*localRequest
}

type localRequest struct {
	id          string
	seed        Seed
	requestedAt time.Time
}

// Fulfillment is a verifiable random value.
type Fulfillment struct {
	Seed       Seed   `json:"seed"`
	Randomness []byte `json:"randomness"`
	Proof      []byte `json:"proof"`
}

// NewLocal creates a local oracle. keySeed fixes the signing key; pass nil
// to generate a fresh one.
func NewLocal(keySeed []byte, delay time.Duration, clock quartz.Clock, logger *log.Logger) (*Local, error) {
	var key ed25519.PrivateKey
	if keySeed == nil {
		var err error
		_, key, err = ed25519.GenerateKey(nil)
		if err != nil {
			return nil, fmt.Errorf("generate oracle key: %w", err)
		}
	} else {
		if len(keySeed) != ed25519.SeedSize {
			return nil, fmt.Errorf("oracle key seed must be %d bytes", ed25519.SeedSize)
		}
		key = ed25519.NewKeyFromSeed(keySeed)
	}

	return &Local{
		key:      key,
		delay:    delay,
		clock:    clock,
		logger:   logger.WithPrefix("oracle"),
		requests: make(map[address.Address]*localRequest),
	}, nil
}

// PublicKey returns the key fulfillments verify against.
func (l *Local) PublicKey() ed25519.PublicKey {
	return l.key.Public().(ed25519.PublicKey)
}

func (l *Local) Request(ctx context.Context, seed Seed) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := address.Randomness(seed)
	if _, ok := l.requests[key]; ok {
		return "", fmt.Errorf("%w: %s", ErrAlreadyRequested, seed)
	}

	req := &localRequest{
		id:          uuid.New().String(),
		seed:        seed,
		requestedAt: l.clock.Now(),
	}
	l.requests[key] = req
	l.logger.Debug("Randomness requested", "seed", seed, "request", req.id)
	return req.id, nil
}

func (l *Local) IsFulfilled(ctx context.Context, seed Seed) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	req, ok := l.requests[address.Randomness(seed)]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownRequest, seed)
	}
	return l.fulfilled(req), nil
}

func (l *Local) Randomness(ctx context.Context, seed Seed) ([]byte, error) {
	f, err := l.Fulfillment(seed)
	if err != nil {
		return nil, err
	}
	return f.Randomness, nil
}

// Fulfillment returns the value together with its proof.
func (l *Local) Fulfillment(seed Seed) (*Fulfillment, error) {
	l.mu.Lock()
	req, ok := l.requests[address.Randomness(seed)]
	ready := ok && l.fulfilled(req)
	l.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRequest, seed)
	}
	if !ready {
		return nil, fmt.Errorf("%w: %s", ErrNotFulfilled, seed)
	}

	proof := ed25519.Sign(l.key, seed[:])
	return &Fulfillment{
		Seed:       seed,
		Randomness: expand(proof),
		Proof:      proof,
	}, nil
}

func (l *Local) fulfilled(req *localRequest) bool {
	return l.clock.Since(req.requestedAt) >= l.delay
}

// Verify checks a fulfillment against the oracle's public key.
func Verify(pub ed25519.PublicKey, f *Fulfillment) error {
	if !ed25519.Verify(pub, f.Seed[:], f.Proof) {
		return fmt.Errorf("oracle: bad proof for seed %s", f.Seed)
	}
	want := expand(f.Proof)
	if string(want) != string(f.Randomness) {
		return fmt.Errorf("oracle: randomness does not match proof for seed %s", f.Seed)
	}
	return nil
}

func expand(proof []byte) []byte {
	sum := sha3.Sum512(proof)
	return sum[:]
}
