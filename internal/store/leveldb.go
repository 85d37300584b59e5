package store

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/syndtr/goleveldb/leveldb"
	lverrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const defaultCacheSize = 1024

// LevelDB is a Store on disk with a read-through LRU cache of decoded values.
type LevelDB struct {
	db    *leveldb.DB
	cache *lru.Cache
	sync  bool
}

// OpenLevelDB opens or creates a database at path, recovering a corrupted one.
func OpenLevelDB(path string, cacheSize int) (*LevelDB, error) {
	if path == "" {
		return nil, errors.New("leveldb: path is required")
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}

	db, err := leveldb.OpenFile(path, &opt.Options{
		OpenFilesCacheCapacity: 64,
		BlockCacheCapacity:     16 * opt.MiB,
		WriteBuffer:            8 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	})
	if lverrors.IsCorrupted(err) {
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}

	cache, err := lru.New(cacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache: %w", err)
	}

	return &LevelDB{db: db, cache: cache, sync: true}, nil
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	if v, ok := l.cache.Get(string(key)); ok {
		return copyBytes(v.([]byte)), nil
	}

	v, err := l.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb get: %w", err)
	}
	l.cache.Add(string(key), copyBytes(v))
	return v, nil
}

func (l *LevelDB) Write(b *Batch) error {
	batch := new(leveldb.Batch)
	for _, o := range b.ops {
		if o.delete {
			batch.Delete(o.key)
		} else {
			batch.Put(o.key, o.value)
		}
	}
	if err := l.db.Write(batch, &opt.WriteOptions{Sync: l.sync}); err != nil {
		return fmt.Errorf("leveldb write: %w", err)
	}

	// Cache only after the batch is durable.
	for _, o := range b.ops {
		if o.delete {
			l.cache.Remove(string(o.key))
		} else {
			l.cache.Add(string(o.key), copyBytes(o.value))
		}
	}
	return nil
}

func (l *LevelDB) Scan(prefix []byte, fn func(key, value []byte) error) error {
	iter := l.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	for iter.Next() {
		if err := fn(copyBytes(iter.Key()), copyBytes(iter.Value())); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (l *LevelDB) Close() error {
	l.cache.Purge()
	return l.db.Close()
}
