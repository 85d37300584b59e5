// Package oracle defines the verifiable randomness capability the coinflip
// controller settles against, plus in-process and HTTP implementations.
//
// The contract mirrors an on-chain VRF: a caller requests randomness keyed by a
// 32-byte seed, polls until the request is fulfilled, then reads a fixed-size
// random value. Implementations never block waiting for fulfillment.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// RandomnessSize is the length of a fulfilled random value.
const RandomnessSize = 64

var (
	// ErrNotFulfilled indicates the request exists but has no value yet.
	ErrNotFulfilled = errors.New("oracle: randomness not fulfilled")

	// ErrAlreadyRequested indicates the seed was requested before. Seeds are
	// single use: reusing one would replay a known value.
	ErrAlreadyRequested = errors.New("oracle: seed already requested")

	// ErrUnknownRequest indicates no request exists for the seed.
	ErrUnknownRequest = errors.New("oracle: unknown request")

	// ErrUnavailable indicates the oracle could not be reached.
	ErrUnavailable = errors.New("oracle: unavailable")
)

// Seed keys a randomness request. The coinflip protocol calls it the force.
type Seed [32]byte

// String renders the seed in base58.
func (s Seed) String() string {
	return base58.Encode(s[:])
}

// MarshalText implements encoding.TextMarshaler.
func (s Seed) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Seed) UnmarshalText(text []byte) error {
	parsed, err := ParseSeed(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeed decodes a base58 seed.
func ParseSeed(text string) (Seed, error) {
	var s Seed
	raw, err := base58.Decode(text)
	if err != nil {
		return s, fmt.Errorf("decode seed: %w", err)
	}
	if len(raw) != len(s) {
		return s, fmt.Errorf("seed must be %d bytes, got %d", len(s), len(raw))
	}
	copy(s[:], raw)
	return s, nil
}

// Oracle is an external randomness service.
type Oracle interface {
	// Request submits a randomness request keyed by seed and returns its id.
	Request(ctx context.Context, seed Seed) (string, error)
	// IsFulfilled reports whether randomness for seed is available.
	IsFulfilled(ctx context.Context, seed Seed) (bool, error)
	// Randomness returns the fulfilled value, or ErrNotFulfilled.
	Randomness(ctx context.Context, seed Seed) ([]byte, error)
}
