package meta

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/cppbear/brinfo/pkg/logging"
)

// BadgerCache persists the Collector's two intern indices across separate
// process invocations against the same project root, so condition and
// function ids stay stable across incremental, multi-file instrumentation
// runs instead of resetting to zero each process (the original C++
// implementation only ever ran once per compiler invocation and never
// needed this; see SPEC_FULL.md §4.1).
type BadgerCache struct {
	db     *badger.DB
	logger *logging.Logger
}

const (
	condKeyPrefix = "cond#"
	funcKeyPrefix = "func#"
)

// OpenBadgerCache opens (creating if necessary) a BadgerDB-backed cache at
// dir. Pass "" for dir to use an in-memory instance (useful for tests and
// one-shot runs where persistence across processes is not needed).
func OpenBadgerCache(dir string, logger *logging.Logger) (*BadgerCache, error) {
	if logger == nil {
		logger = logging.Default()
	}
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger intern cache: %w", err)
	}
	return &BadgerCache{db: db, logger: logger}, nil
}

// Close releases the underlying BadgerDB handle.
func (b *BadgerCache) Close() error {
	return b.db.Close()
}

func (b *BadgerCache) LookupCondition(key string) (uint32, bool) {
	return b.lookup(condKeyPrefix + key)
}

func (b *BadgerCache) StoreCondition(key string, id uint32) {
	b.store(condKeyPrefix+key, id)
}

func (b *BadgerCache) LookupFunction(hash uint64) (uint32, bool) {
	return b.lookup(fmt.Sprintf("%s%d", funcKeyPrefix, hash))
}

func (b *BadgerCache) StoreFunction(hash uint64, id uint32) {
	b.store(fmt.Sprintf("%s%d", funcKeyPrefix, hash), id)
}

func (b *BadgerCache) lookup(key string) (uint32, bool) {
	var id uint32
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 4 {
				return fmt.Errorf("corrupt intern cache entry for %q", key)
			}
			id = binary.BigEndian.Uint32(val)
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			b.logger.Warn("intern cache lookup failed", "key", key, "error", err.Error())
		}
		return 0, false
	}
	return id, true
}

func (b *BadgerCache) store(key string, id uint32) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, id)
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), buf)
	})
	if err != nil {
		b.logger.Warn("intern cache store failed", "key", key, "error", err.Error())
	}
}

var _ InternCache = (*BadgerCache)(nil)
