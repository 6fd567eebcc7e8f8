package bank

// Store persists the three collections the engine works on:
//
//	accounts   keyed by account ID
//	ledger     keyed by global sequence number (append-only)
//	positions  keyed by account ID (the account's whole open-set)
//
// Implementations must make Commit atomic across collections and must refuse
// to overwrite an existing ledger sequence.
type Store interface {
	// LoadAccount returns nil, nil when the account does not exist.
	LoadAccount(id string) (*Account, error)

	// LastSequence returns the highest ledger sequence, or 0 if empty.
	LastSequence() (int64, error)

	// LoadEntries returns the entries for the given sequences in ascending
	// order. Unknown sequences are skipped.
	LoadEntries(seqs []int64) ([]*LedgerEntry, error)

	// LedgerRange returns up to limit entries with sequence >= from, ascending.
	LedgerRange(from int64, limit int) ([]*LedgerEntry, error)

	// LoadPositions returns the open-set of an account (empty if none).
	LoadPositions(accountID string) ([]*Position, error)

	// Commit writes every part of tx or nothing.
	Commit(tx *Tx) error

	Close() error
}

// Tx is one logical transaction across collections.
type Tx struct {
	Accounts []*Account
	Entries  []*LedgerEntry

	// accountID → replacement open-set; an empty slice deletes the set.
	Positions map[string][]*Position
}

// SetPositions stages the replacement open-set for an account.
func (tx *Tx) SetPositions(accountID string, open []*Position) {
	if tx.Positions == nil {
		tx.Positions = make(map[string][]*Position)
	}
	tx.Positions[accountID] = open
}

// Empty reports whether tx writes nothing.
func (tx *Tx) Empty() bool {
	return len(tx.Accounts) == 0 && len(tx.Entries) == 0 && len(tx.Positions) == 0
}
