package address

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveDeterministic(t *testing.T) {
	assert.Equal(t, Game("abc123"), Game("abc123"))
	assert.NotEqual(t, Game("abc123"), Game("abc124"))
	assert.Equal(t, Treasury(), Treasury())
}

func TestDeriveSeparatesTags(t *testing.T) {
	assert.NotEqual(t, Game("room"), Account("room"))
	assert.NotEqual(t, Derive("ab", []byte("c")), Derive("a", []byte("bc")))
	assert.NotEqual(t, Derive("x", []byte("ab"), []byte("c")), Derive("x", []byte("a"), []byte("bc")))
}

func TestReceiptSequence(t *testing.T) {
	assert.NotEqual(t, Receipt("room", 0), Receipt("room", 1))
	assert.NotEqual(t, Receipt("room", 0), Game("room"))
}

func TestRandomnessIndependentOfRoom(t *testing.T) {
	var f [32]byte
	f[0] = 1
	assert.Equal(t, Randomness(f), Randomness(f))
	f[31] = 9
	assert.NotEqual(t, Randomness([32]byte{1}), Randomness(f))
}

func TestParseRoundTrip(t *testing.T) {
	a := Game("abc123")
	parsed, err := Parse(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)

	_, err = Parse("not-base58-0OIl")
	assert.Error(t, err)
	_, err = Parse("3mJr7AoUXx2Wqd") // valid base58, wrong length
	assert.Error(t, err)
}

func TestKeyPrefix(t *testing.T) {
	k := Key(TagCoinflip, Game("abc"))
	assert.True(t, bytes.HasPrefix(k, Prefix(TagCoinflip)))
	assert.False(t, bytes.HasPrefix(k, Prefix(TagReceipt)))
}
