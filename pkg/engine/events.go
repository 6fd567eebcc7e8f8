package engine

import (
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/cardbank/pkg/bank"
)

type EventType string

const (
	EventRegister      EventType = "register"
	EventConnect       EventType = "connect"
	EventTransaction   EventType = "transaction"
	EventPositionOpen  EventType = "position_open"
	EventPositionClose EventType = "position_close"
)

// Event describes one committed mutation. It is published after the store
// commit succeeds, never before.
type Event struct {
	Type       EventType         `json:"type"`
	Holder     string            `json:"holder"`
	Time       int64             `json:"time"`
	Balance    decimal.Decimal   `json:"balance"`
	Platform   string            `json:"platform,omitempty"`
	Entry      *bank.LedgerEntry `json:"entry,omitempty"`
	Position   *bank.Position    `json:"position,omitempty"`
	Settlement *bank.Settlement  `json:"settlement,omitempty"`
}

// OnCommit registers a hook called after every committed mutation. Hooks run
// on the mutating goroutine after the store lock is released; they must not
// block.
func (e *Engine) OnCommit(fn func(Event)) {
	e.hooksMu.Lock()
	defer e.hooksMu.Unlock()
	e.hooks = append(e.hooks, fn)
}

func (e *Engine) publish(ev Event) {
	e.hooksMu.RLock()
	hooks := append([]func(Event){}, e.hooks...)
	e.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(ev)
	}
}
