package storage

import (
	"sort"
	"sync"

	"github.com/uhyunpark/cardbank/pkg/bank"
)

// MemStore is a map-backed bank.Store for tests and throwaway runs. Values
// are deep-copied on the way in and out.
type MemStore struct {
	mu        sync.Mutex
	accounts  map[string]*bank.Account
	ledger    map[int64]*bank.LedgerEntry
	positions map[string][]*bank.Position
	lastSeq   int64

	// FailCommit makes the next Commit return this error without writing.
	FailCommit error
}

var _ bank.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		accounts:  make(map[string]*bank.Account),
		ledger:    make(map[int64]*bank.LedgerEntry),
		positions: make(map[string][]*bank.Position),
	}
}

func (s *MemStore) Close() error { return nil }

func (s *MemStore) LoadAccount(id string) (*bank.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	b, err := encode(acc)
	if err != nil {
		return nil, err
	}
	return decodeAccount(b)
}

func (s *MemStore) LastSequence() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq, nil
}

func (s *MemStore) LoadEntries(seqs []int64) ([]*bank.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*bank.LedgerEntry, 0, len(seqs))
	for _, seq := range seqs {
		e, ok := s.ledger[seq]
		if !ok {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sortEntries(out)
	return out, nil
}

func (s *MemStore) LedgerRange(from int64, limit int) ([]*bank.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*bank.LedgerEntry
	for seq, e := range s.ledger {
		if seq >= from {
			cp := *e
			out = append(out, &cp)
		}
	}
	sortEntries(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) LoadPositions(accountID string) ([]*bank.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	open := s.positions[accountID]
	out := make([]*bank.Position, 0, len(open))
	for _, p := range open {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemStore) Commit(tx *bank.Tx) error {
	if tx == nil || tx.Empty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.FailCommit; err != nil {
		s.FailCommit = nil
		return unavailable(err, "commit failed")
	}
	for _, e := range tx.Entries {
		if _, ok := s.ledger[e.Sequence]; ok {
			return bank.Errorf(bank.CodeInvariantViolation, "ledger sequence %d already written", e.Sequence)
		}
	}

	// stage copies first so a codec failure leaves nothing half-written
	accounts := make([]*bank.Account, 0, len(tx.Accounts))
	for _, acc := range tx.Accounts {
		cp, err := clone(acc)
		if err != nil {
			return unavailable(err, "failed to copy account")
		}
		accounts = append(accounts, cp)
	}

	for _, acc := range accounts {
		s.accounts[acc.ID] = acc
	}
	for _, e := range tx.Entries {
		cp := *e
		s.ledger[e.Sequence] = &cp
		if e.Sequence > s.lastSeq {
			s.lastSeq = e.Sequence
		}
	}
	for id, open := range tx.Positions {
		if len(open) == 0 {
			delete(s.positions, id)
			continue
		}
		cp := make([]*bank.Position, 0, len(open))
		for _, p := range open {
			pc := *p
			cp = append(cp, &pc)
		}
		s.positions[id] = cp
	}
	return nil
}

func sortEntries(entries []*bank.LedgerEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Sequence < entries[j].Sequence })
}
