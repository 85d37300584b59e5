// Package randutil centralises deterministic RNG seeding and force generation.
package randutil

import (
	crand "crypto/rand"
	rand "math/rand/v2"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// Simulations and the local oracle's seeded mode derive their PCG state here
// so runs with the same seed replay identically.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// Force returns a fresh 32-byte seed from the operating system CSPRNG.
// Players must not be able to predict the randomness a force will map to, so
// production forces never come from a seeded source.
func Force() [32]byte {
	var f [32]byte
	if _, err := crand.Read(f[:]); err != nil {
		panic("failed to generate force: " + err.Error())
	}
	return f
}

// ForceFrom fills a 32-byte seed from r. Only for simulations and tests.
func ForceFrom(r *rand.Rand) [32]byte {
	var f [32]byte
	for i := 0; i < len(f); i += 8 {
		v := r.Uint64()
		for j := 0; j < 8; j++ {
			f[i+j] = byte(v >> (8 * j))
		}
	}
	return f
}
