// Package storage persists accounts, the ledger and open positions.
package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/cardbank/pkg/bank"
)

// PebbleStore keeps every collection in one Pebble database so a Tx can be
// written as a single batch.
type PebbleStore struct {
	db *pebble.DB

	// serializes the ledger existence check with the batch commit
	commitMu sync.Mutex
}

var _ bank.Store = (*PebbleStore)(nil)

// NewPebbleStore opens a Pebble database at the given path
func NewPebbleStore(path string) (*PebbleStore, error) {
	opts := &pebble.Options{
		Cache:                    pebble.NewCache(64 << 20), // 64MB cache
		MemTableSize:             32 << 20,                  // 32MB memtable
		MaxConcurrentCompactions: func() int { return 2 },
		MaxOpenFiles:             1000,
		BytesPerSync:             512 << 10, // 512KB
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", path, err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

func unavailable(err error, msg string) error {
	return bank.Wrap(bank.CodeStoreUnavailable, err, msg)
}

// LoadAccount loads an account from Pebble
// Returns nil if account doesn't exist
func (s *PebbleStore) LoadAccount(id string) (*bank.Account, error) {
	data, closer, err := s.db.Get(accountKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err, "failed to get account")
	}
	defer closer.Close()

	acc, err := decodeAccount(data)
	if err != nil {
		return nil, unavailable(err, "failed to unmarshal account")
	}
	return acc, nil
}

func (s *PebbleStore) LastSequence() (int64, error) {
	prefix := []byte(prefixLedger)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return 0, unavailable(err, "failed to open ledger iterator")
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, nil
	}
	var e bank.LedgerEntry
	if err := decode(iter.Value(), &e); err != nil {
		return 0, unavailable(err, "failed to unmarshal ledger entry")
	}
	return e.Sequence, nil
}

func (s *PebbleStore) LoadEntries(seqs []int64) ([]*bank.LedgerEntry, error) {
	entries := make([]*bank.LedgerEntry, 0, len(seqs))
	for _, seq := range seqs {
		data, closer, err := s.db.Get(ledgerKey(seq))
		if errors.Is(err, pebble.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, unavailable(err, "failed to get ledger entry")
		}
		var e bank.LedgerEntry
		err = decode(data, &e)
		closer.Close()
		if err != nil {
			return nil, unavailable(err, "failed to unmarshal ledger entry")
		}
		entries = append(entries, &e)
	}
	sortEntries(entries)
	return entries, nil
}

func (s *PebbleStore) LedgerRange(from int64, limit int) ([]*bank.LedgerEntry, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: ledgerKey(from),
		UpperBound: keyUpperBound([]byte(prefixLedger)),
	})
	if err != nil {
		return nil, unavailable(err, "failed to open ledger iterator")
	}
	defer iter.Close()

	var entries []*bank.LedgerEntry
	for iter.First(); iter.Valid() && (limit <= 0 || len(entries) < limit); iter.Next() {
		var e bank.LedgerEntry
		if err := decode(iter.Value(), &e); err != nil {
			return nil, unavailable(err, "failed to unmarshal ledger entry")
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

func (s *PebbleStore) LoadPositions(accountID string) ([]*bank.Position, error) {
	data, closer, err := s.db.Get(positionKey(accountID))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err, "failed to get positions")
	}
	defer closer.Close()

	var open []*bank.Position
	if err := decode(data, &open); err != nil {
		return nil, unavailable(err, "failed to unmarshal positions")
	}
	return open, nil
}

// Commit writes tx as one synced batch. A ledger sequence that already
// exists aborts the whole batch.
func (s *PebbleStore) Commit(tx *bank.Tx) error {
	if tx == nil || tx.Empty() {
		return nil
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	batch := s.db.NewBatch()
	defer batch.Close()

	for _, e := range tx.Entries {
		key := ledgerKey(e.Sequence)
		_, closer, err := s.db.Get(key)
		if err == nil {
			closer.Close()
			return bank.Errorf(bank.CodeInvariantViolation, "ledger sequence %d already written", e.Sequence)
		}
		if !errors.Is(err, pebble.ErrNotFound) {
			return unavailable(err, "failed to check ledger entry")
		}
		data, err := encode(e)
		if err != nil {
			return unavailable(err, "failed to marshal ledger entry")
		}
		if err := batch.Set(key, data, nil); err != nil {
			return unavailable(err, "failed to stage ledger entry")
		}
	}

	for _, acc := range tx.Accounts {
		data, err := encode(acc)
		if err != nil {
			return unavailable(err, "failed to marshal account")
		}
		if err := batch.Set(accountKey(acc.ID), data, nil); err != nil {
			return unavailable(err, "failed to stage account")
		}
	}

	for id, open := range tx.Positions {
		if len(open) == 0 {
			if err := batch.Delete(positionKey(id), nil); err != nil {
				return unavailable(err, "failed to stage position delete")
			}
			continue
		}
		data, err := encode(open)
		if err != nil {
			return unavailable(err, "failed to marshal positions")
		}
		if err := batch.Set(positionKey(id), data, nil); err != nil {
			return unavailable(err, "failed to stage positions")
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return unavailable(err, "failed to commit batch")
	}
	return nil
}
