package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	ldb, err := OpenLevelDB(filepath.Join(t.TempDir(), "coinflip.db"), 8)
	require.NoError(t, err)
	t.Cleanup(func() { ldb.Close() })

	return map[string]Store{
		BackendMemory:  NewMemory(),
		BackendLevelDB: ldb,
	}
}

func TestStoreGetMissing(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get([]byte("nope"))
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreBatch(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var b Batch
			b.Put([]byte("coinflip/a"), []byte("1"))
			b.Put([]byte("coinflip/b"), []byte("2"))
			b.Put([]byte("account/x"), []byte("3"))
			require.Equal(t, 3, b.Len())
			require.NoError(t, s.Write(&b))

			v, err := s.Get([]byte("coinflip/a"))
			require.NoError(t, err)
			assert.Equal(t, []byte("1"), v)

			// Mutating a returned value must not leak into the store.
			v[0] = 'X'
			v, err = s.Get([]byte("coinflip/a"))
			require.NoError(t, err)
			assert.Equal(t, []byte("1"), v)

			var del Batch
			del.Delete([]byte("coinflip/b"))
			require.NoError(t, s.Write(&del))
			_, err = s.Get([]byte("coinflip/b"))
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreScan(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var b Batch
			b.Put([]byte("coinflip/b"), []byte("2"))
			b.Put([]byte("coinflip/a"), []byte("1"))
			b.Put([]byte("receipt/a"), []byte("9"))
			require.NoError(t, s.Write(&b))

			var keys []string
			require.NoError(t, s.Scan([]byte("coinflip/"), func(k, v []byte) error {
				keys = append(keys, string(k))
				return nil
			}))
			assert.Equal(t, []string{"coinflip/a", "coinflip/b"}, keys)

			stop := errors.New("stop")
			err := s.Scan([]byte("coinflip/"), func(k, v []byte) error { return stop })
			assert.ErrorIs(t, err, stop)
		})
	}
}

func TestLevelDBPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	s, err := OpenLevelDB(path, 0)
	require.NoError(t, err)

	var b Batch
	b.Put([]byte("house_treasury/x"), []byte("state"))
	require.NoError(t, s.Write(&b))
	require.NoError(t, s.Close())

	s, err = OpenLevelDB(path, 0)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Get([]byte("house_treasury/x"))
	require.NoError(t, err)
	assert.Equal(t, []byte("state"), v)
}

func TestOpen(t *testing.T) {
	s, err := Open(Options{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	_, err = Open(Options{Backend: BackendLevelDB})
	assert.Error(t, err)

	_, err = Open(Options{Backend: "redis"})
	assert.Error(t, err)
}
