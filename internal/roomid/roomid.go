// Package roomid generates and validates coinflip room identifiers.
package roomid

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"unicode"
	"unicode/utf8"
)

// MaxLen is the longest room id in bytes.
const MaxLen = 32

// GeneratedLen is the length of generated ids.
const GeneratedLen = 8

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// RandSource allows deterministic generation in tests.
type RandSource interface {
	IntN(n int) int
}

// Generator creates room ids.
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a generator. A nil source uses crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate returns a random 8 character base36 room id.
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate returns a room id from the generator's source.
func (g *Generator) Generate() string {
	out := make([]byte, GeneratedLen)
	for i := range out {
		out[i] = alphabet[g.intN(len(alphabet))]
	}
	return string(out)
}

func (g *Generator) intN(n int) int {
	if g.randSource != nil {
		return g.randSource.IntN(n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("failed to generate random room id: " + err.Error())
	}
	return int(v.Int64())
}

// Validate checks a caller-chosen room id: 1 to 32 bytes of printable UTF-8
// with no whitespace.
func Validate(id string) error {
	if id == "" {
		return fmt.Errorf("room id must not be empty")
	}
	if len(id) > MaxLen {
		return fmt.Errorf("room id is %d bytes, max %d", len(id), MaxLen)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("room id is not valid UTF-8")
	}
	for i, r := range id {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return fmt.Errorf("invalid character %q at position %d", r, i)
		}
	}
	return nil
}
