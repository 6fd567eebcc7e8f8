package bank

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Account is an issued virtual card with its balance.
// ID is the stable hash of Holder (see card.IdentityOf) and is the store key.
type Account struct {
	ID         string          `json:"id"`
	Holder     string          `json:"holder"` // external user handle
	CardNumber string          `json:"card_number"`
	Expiry     string          `json:"expiry"` // MM/YY
	VerifyCode string          `json:"verify_code"`
	Scheme     string          `json:"scheme"`
	CardType   string          `json:"card_type"`
	Balance    decimal.Decimal `json:"balance"`

	// platform → authorized connections for that platform
	Connections map[string][]Connection `json:"connections,omitempty"`

	// event timestamp (unix seconds) → ledger sequence number, own events only
	Transactions map[int64]int64 `json:"transactions,omitempty"`

	CreatedAt int64 `json:"created_at"`
}

// Connection authorizes one external platform to act on an account.
type Connection struct {
	Platform string `json:"platform"`
	Token    string `json:"token"`
}

// Validate checks account invariants
func (a *Account) Validate() error {
	if a.Balance.IsNegative() {
		return Errorf(CodeInvariantViolation, "negative balance %s on account %s", a.Balance, a.ID)
	}
	for platform, conns := range a.Connections {
		seen := make(map[string]bool, len(conns))
		for _, c := range conns {
			if c.Platform != platform {
				return Errorf(CodeInvariantViolation, "connection platform mismatch: key=%s, conn=%s", platform, c.Platform)
			}
			if seen[c.Token] {
				return Errorf(CodeInvariantViolation, "duplicate connection for %s", platform)
			}
			seen[c.Token] = true
		}
	}
	return nil
}

// Connection returns the first stored connection for platform.
func (a *Account) Connection(platform string) (Connection, bool) {
	conns := a.Connections[platform]
	if len(conns) == 0 {
		return Connection{}, false
	}
	return conns[0], true
}

// AddConnection stores a connection. It does not check for an existing one;
// idempotence is the authorizer's job.
func (a *Account) AddConnection(c Connection) {
	if a.Connections == nil {
		a.Connections = make(map[string][]Connection)
	}
	a.Connections[c.Platform] = append(a.Connections[c.Platform], c)
}

// IndexEvent records ts → seq in the account's transaction index. If ts is
// already taken the stamp is moved forward to the next free second, and the
// stamp actually used is returned.
func (a *Account) IndexEvent(ts, seq int64) int64 {
	if a.Transactions == nil {
		a.Transactions = make(map[int64]int64)
	}
	for {
		if _, taken := a.Transactions[ts]; !taken {
			break
		}
		ts++
	}
	a.Transactions[ts] = seq
	return ts
}

// SequencesAfter returns the ledger sequence numbers the index references
// for events strictly after ts, ascending.
func (a *Account) SequencesAfter(ts int64) []int64 {
	out := make([]int64, 0)
	for stamp, seq := range a.Transactions {
		if stamp > ts {
			out = append(out, seq)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (a *Account) String() string {
	return fmt.Sprintf("account(%s holder=%s balance=%s)", a.ID, a.Holder, a.Balance)
}
