package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/uhyunpark/cardbank/pkg/bank"
)

// Journal receives every committed ledger entry, one line each, in sequence
// order. It is an audit trail only; the store stays authoritative.
type Journal interface {
	Append(e *bank.LedgerEntry)
}

type NopJournal struct{}

func NewNopJournal() *NopJournal                { return &NopJournal{} }
func (j *NopJournal) Append(_ *bank.LedgerEntry) {}

// FileJournal appends JSON lines to a file.
type FileJournal struct {
	mu sync.Mutex
	f  *os.File
}

func NewFileJournal(path string) (*FileJournal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileJournal{f: f}, nil
}

func (j *FileJournal) Append(e *bank.LedgerEntry) {
	line, err := json.Marshal(e)
	if err != nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	fmt.Fprintln(j.f, string(line))
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}

var _ Journal = (*NopJournal)(nil)
var _ Journal = (*FileJournal)(nil)
