// Package address derives content-addressed locations for coinflip state.
//
// A game's location is a pure function of its room id, the treasury's location
// is a pure function of a fixed tag. Nothing needs a directory lookup.
package address

import (
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

// Size is the length of a derived address in bytes.
const Size = 32

// Fixed derivation tags.
const (
	TagTreasury   = "house_treasury"
	TagCoinflip   = "coinflip"
	TagReceipt    = "receipt"
	TagAccount    = "account"
	TagRandomness = "randomness"
)

// domain separates coinflip derivations from any other sha3 use of the same inputs.
var domain = []byte("coinflip/v1")

// Address is a derived 32-byte location.
type Address [Size]byte

// String renders the address in base58.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Parse decodes a base58 address.
func Parse(s string) (Address, error) {
	var a Address
	raw, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("decode address %q: %w", s, err)
	}
	if len(raw) != Size {
		return a, fmt.Errorf("address %q: want %d bytes, got %d", s, Size, len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

// Derive hashes a tag and seed parts into an address. Every part is length
// prefixed so ("ab","c") and ("a","bc") never collide.
func Derive(tag string, parts ...[]byte) Address {
	h := sha3.New256()
	h.Write(domain)
	writePart(h, []byte(tag))
	for _, p := range parts {
		writePart(h, p)
	}
	var a Address
	copy(a[:], h.Sum(nil))
	return a
}

type writer interface {
	Write([]byte) (int, error)
}

func writePart(w writer, p []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(p)))
	w.Write(n[:])
	w.Write(p)
}

// Treasury is the singleton treasury address.
func Treasury() Address {
	return Derive(TagTreasury)
}

// Game is the address of the game record for a room.
func Game(roomID string) Address {
	return Derive(TagCoinflip, []byte(roomID))
}

// Receipt is the address of the n-th archived game of a room.
func Receipt(roomID string, n uint32) Address {
	var seq [4]byte
	binary.BigEndian.PutUint32(seq[:], n)
	return Derive(TagReceipt, []byte(roomID), seq[:])
}

// Account is the address holding an identity's balance.
func Account(owner string) Address {
	return Derive(TagAccount, []byte(owner))
}

// Randomness is the lookup key for an oracle result, derived from the force
// independently of the room.
func Randomness(force [32]byte) Address {
	return Derive(TagRandomness, force[:])
}

// Key is the storage key for an address. The tag prefix keeps records of one
// kind contiguous for prefix scans.
func Key(tag string, a Address) []byte {
	return []byte(tag + "/" + a.String())
}

// Prefix is the scan prefix for all keys with the given tag.
func Prefix(tag string) []byte {
	return []byte(tag + "/")
}
