package outcome

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanschwarting/coinflip/internal/randutil"
)

func randomWithBucket(v uint64) []byte {
	out := make([]byte, 64)
	// Upper bytes are noise the rule must ignore.
	for i := 8; i < len(out); i++ {
		out[i] = 0xAB
	}
	binary.LittleEndian.PutUint64(out, 200*12345+v)
	return out
}

func TestResolveThresholds(t *testing.T) {
	tests := []struct {
		bucket uint64
		want   Result
	}{
		{0, Tie},
		{5, Tie},
		{9, Tie},
		{10, Option1Wins},
		{50, Option1Wins},
		{104, Option1Wins},
		{105, Option2Wins},
		{150, Option2Wins},
		{199, Option2Wins},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			random := randomWithBucket(tt.bucket)
			assert.Equal(t, tt.bucket, RuleV1.Bucket(random))
			assert.Equal(t, tt.want, RuleV1.Resolve(random))
		})
	}
}

func TestBucketLittleEndianLowBytes(t *testing.T) {
	random := make([]byte, 64)
	random[0] = 0x01 // little-endian 1
	random[8] = 0xFF // ignored
	assert.Equal(t, uint64(1), RuleV1.Bucket(random))

	// Short inputs are zero padded rather than rejected.
	assert.Equal(t, uint64(7), RuleV1.Bucket([]byte{7}))
}

func TestResolveIsPure(t *testing.T) {
	r := randutil.New(1)
	for i := 0; i < 1000; i++ {
		random := make([]byte, 64)
		for j := range random {
			random[j] = byte(r.UintN(256))
		}
		first := RuleV1.Resolve(random)
		for k := 0; k < 3; k++ {
			require.Equal(t, first, RuleV1.Resolve(append([]byte(nil), random...)))
		}
	}
}

func TestDistribution(t *testing.T) {
	const trials = 200_000
	r := randutil.New(20240601)
	counts := map[Result]int{}
	random := make([]byte, 8)
	for i := 0; i < trials; i++ {
		binary.LittleEndian.PutUint64(random, r.Uint64())
		counts[RuleV1.Resolve(random)]++
	}

	// Tolerance is far outside sampling error at this trial count.
	assert.InDelta(t, 0.05, float64(counts[Tie])/trials, 0.005)
	assert.InDelta(t, 0.475, float64(counts[Option1Wins])/trials, 0.01)
	assert.InDelta(t, 0.475, float64(counts[Option2Wins])/trials, 0.01)
	assert.Zero(t, counts[None])
	assert.Zero(t, counts[Void])
}

func TestRuleValidate(t *testing.T) {
	require.NoError(t, RuleV1.Validate())
	assert.Error(t, Rule{Version: 9}.Validate())
	assert.Error(t, Rule{Version: 9, Modulus: 10, TieBelow: 5, Opt1Below: 4}.Validate())
	assert.Error(t, Rule{Version: 9, Modulus: 10, TieBelow: 5, Opt1Below: 11}.Validate())
}

func TestByVersion(t *testing.T) {
	r, ok := ByVersion(1)
	require.True(t, ok)
	assert.Equal(t, RuleV1, r)

	_, ok = ByVersion(2)
	assert.False(t, ok)
}

func TestResultUnmarshalRejectsUnknown(t *testing.T) {
	var r Result
	assert.Error(t, r.UnmarshalText([]byte("house_wins")))
}
