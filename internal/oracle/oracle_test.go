package oracle

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func seed(b byte) Seed {
	var s Seed
	for i := range s {
		s[i] = b + byte(i)
	}
	return s
}

func TestLocalFulfillsAfterDelay(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	o, err := NewLocal(make([]byte, 32), 3*time.Second, clock, testLogger())
	require.NoError(t, err)

	s := seed(1)
	id, err := o.Request(ctx, s)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	ok, err := o.IsFulfilled(ctx, s)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = o.Randomness(ctx, s)
	assert.ErrorIs(t, err, ErrNotFulfilled)

	clock.Advance(3 * time.Second)

	ok, err = o.IsFulfilled(ctx, s)
	require.NoError(t, err)
	assert.True(t, ok)

	value, err := o.Randomness(ctx, s)
	require.NoError(t, err)
	assert.Len(t, value, RandomnessSize)

	again, err := o.Randomness(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, value, again)
}

func TestLocalFulfillmentVerifies(t *testing.T) {
	o, err := NewLocal(nil, 0, quartz.NewMock(t), testLogger())
	require.NoError(t, err)

	s := seed(2)
	_, err = o.Request(context.Background(), s)
	require.NoError(t, err)

	f, err := o.Fulfillment(s)
	require.NoError(t, err)
	require.NoError(t, Verify(o.PublicKey(), f))

	f.Randomness[0] ^= 0xFF
	assert.Error(t, Verify(o.PublicKey(), f))
}

func TestLocalSameKeySameRandomness(t *testing.T) {
	keySeed := make([]byte, 32)
	keySeed[0] = 7
	a, err := NewLocal(keySeed, 0, quartz.NewMock(t), testLogger())
	require.NoError(t, err)
	b, err := NewLocal(keySeed, 0, quartz.NewMock(t), testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	s := seed(3)
	_, err = a.Request(ctx, s)
	require.NoError(t, err)
	_, err = b.Request(ctx, s)
	require.NoError(t, err)

	va, err := a.Randomness(ctx, s)
	require.NoError(t, err)
	vb, err := b.Randomness(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, va, vb)
}

func TestLocalRejectsReuseAndUnknown(t *testing.T) {
	ctx := context.Background()
	o, err := NewLocal(nil, 0, quartz.NewMock(t), testLogger())
	require.NoError(t, err)

	_, err = o.Request(ctx, seed(4))
	require.NoError(t, err)
	_, err = o.Request(ctx, seed(4))
	assert.ErrorIs(t, err, ErrAlreadyRequested)

	_, err = o.IsFulfilled(ctx, seed(5))
	assert.ErrorIs(t, err, ErrUnknownRequest)

	_, err = NewLocal([]byte{1, 2}, 0, quartz.NewMock(t), testLogger())
	assert.Error(t, err)
}

func TestManual(t *testing.T) {
	ctx := context.Background()
	m := NewManual()
	s := seed(6)

	_, err := m.Randomness(ctx, s)
	assert.ErrorIs(t, err, ErrUnknownRequest)

	_, err = m.Request(ctx, s)
	require.NoError(t, err)
	assert.True(t, m.Requested(s))
	assert.Equal(t, 1, m.Requests())

	ok, err := m.IsFulfilled(ctx, s)
	require.NoError(t, err)
	assert.False(t, ok)

	m.Fulfill(s, []byte{50})
	v, err := m.Randomness(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, []byte{50}, v)

	m.FailRequests(ErrUnavailable)
	_, err = m.Request(ctx, seed(7))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSeedText(t *testing.T) {
	s := seed(9)
	parsed, err := ParseSeed(s.String())
	require.NoError(t, err)
	assert.Equal(t, s, parsed)

	_, err = ParseSeed("abc")
	assert.Error(t, err)
}

func TestHTTPRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewManual()
	mux := http.NewServeMux()
	NewHandler(m, testLogger()).Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	s := seed(10)

	_, err := c.IsFulfilled(ctx, s)
	assert.ErrorIs(t, err, ErrUnknownRequest)

	id, err := c.Request(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "manual-1", id)

	_, err = c.Request(ctx, s)
	assert.ErrorIs(t, err, ErrAlreadyRequested)

	ok, err := c.IsFulfilled(ctx, s)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = c.Randomness(ctx, s)
	assert.ErrorIs(t, err, ErrNotFulfilled)

	value := make([]byte, RandomnessSize)
	value[0] = 50
	m.Fulfill(s, value)

	got, err := c.Randomness(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, value, got)
}

func TestHTTPClientUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	_, err := c.Request(context.Background(), seed(11))
	assert.ErrorIs(t, err, ErrUnavailable)
}
