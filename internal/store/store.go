// Package store persists coinflip state as key/value pairs.
//
// All writes go through a Batch which is applied atomically: either every
// operation in it becomes visible or none does.
package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("store: not found")

// Backend names accepted by Open.
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
)

// Store is a key/value store with atomic batches.
type Store interface {
	// Get returns a copy of the value stored under key, or ErrNotFound.
	Get(key []byte) ([]byte, error)
	// Write applies the batch atomically.
	Write(b *Batch) error
	// Scan calls fn for every key with the given prefix in key order.
	// Returning an error from fn stops the scan and is returned.
	Scan(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

type op struct {
	key    []byte
	value  []byte
	delete bool
}

// Batch collects writes to apply together.
type Batch struct {
	ops []op
}

// Put records a write of value under key.
func (b *Batch) Put(key, value []byte) {
	b.ops = append(b.ops, op{key: copyBytes(key), value: copyBytes(value)})
}

// Delete records removal of key.
func (b *Batch) Delete(key []byte) {
	b.ops = append(b.ops, op{key: copyBytes(key), delete: true})
}

// Len is the number of recorded operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Options selects and tunes a backend.
type Options struct {
	Backend   string
	Path      string
	CacheSize int
}

// Open constructs the backend named in opts.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendLevelDB:
		return OpenLevelDB(opts.Path, opts.CacheSize)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
