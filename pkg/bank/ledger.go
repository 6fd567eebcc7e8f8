package bank

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TxKind is the direction of a balance mutation.
type TxKind int8

const (
	Credit TxKind = iota + 1
	Debit
)

func (k TxKind) String() string {
	switch k {
	case Credit:
		return "credit"
	case Debit:
		return "debit"
	default:
		return "unknown"
	}
}

func (k TxKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *TxKind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind accepts "credit" or "debit" in any case.
func ParseKind(s string) (TxKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "credit":
		return Credit, nil
	case "debit":
		return Debit, nil
	}
	return 0, Errorf(CodeInvalidInput, "unknown transaction kind %q", s)
}

// LedgerEntry is one immutable, sequence-numbered balance event.
type LedgerEntry struct {
	Sequence     int64           `json:"sequence"`
	Timestamp    int64           `json:"timestamp"` // unix seconds
	AccountID    string          `json:"account_id"`
	Kind         TxKind          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Counterparty string          `json:"counterparty"`
}

// NextSequence returns max(existing)+1, or 1 for an empty ledger.
func NextSequence(last int64) int64 {
	if last < 0 {
		last = 0
	}
	return last + 1
}

// Size bounds for externally supplied decimals. Values outside them are
// rejected before any arithmetic touches them.
const (
	maxDecimalLen = 64
	minExponent   = -18
	maxExponent   = 18
	maxDigits     = 36
)

// ParseDecimal parses s as a decimal of bounded size. Failures carry code.
func ParseDecimal(s string, code Code, field string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, Errorf(code, "%s is empty", field)
	}
	if len(s) > maxDecimalLen {
		return decimal.Zero, Errorf(code, "%s is too long (%d chars)", field, len(s))
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Wrap(code, err, field+" is not a decimal")
	}
	if exp := d.Exponent(); exp < minExponent || exp > maxExponent {
		return decimal.Zero, Errorf(code, "%s exponent %d out of range [%d, %d]", field, exp, minExponent, maxExponent)
	}
	if d.NumDigits() > maxDigits {
		return decimal.Zero, Errorf(code, "%s has more than %d digits", field, maxDigits)
	}
	return d, nil
}

// ParseAmount validates an externally supplied amount: a bounded, strictly
// positive decimal.
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := ParseDecimal(s, CodeInvalidAmount, "amount")
	if err != nil {
		return decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, Errorf(CodeInvalidAmount, "amount must be positive: %s", amount)
	}
	return amount, nil
}

// Apply mutates the account balance. Debits require balance >= amount; a
// failed debit leaves the balance untouched.
func Apply(acc *Account, kind TxKind, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return acc.Balance, Errorf(CodeInvalidAmount, "amount must not be negative: %s", amount)
	}
	switch kind {
	case Credit:
		acc.Balance = acc.Balance.Add(amount)
	case Debit:
		if !HasFunds(acc.Balance, amount) {
			return acc.Balance, Errorf(CodeInsufficientFunds, "insufficient balance: have %s, need %s", acc.Balance, amount)
		}
		acc.Balance = acc.Balance.Sub(amount)
	default:
		return acc.Balance, Errorf(CodeInvalidInput, "unknown transaction kind %d", kind)
	}
	return acc.Balance, nil
}

// HasFunds reports balance >= amount.
func HasFunds(balance, amount decimal.Decimal) bool {
	return balance.GreaterThanOrEqual(amount)
}

// Post applies a balance mutation and produces the ledger entry that records
// it. The entry takes the next sequence after last and the account index
// points its event stamp at that sequence. On error nothing is changed.
func Post(acc *Account, last, now int64, kind TxKind, amount decimal.Decimal, counterparty string) (*LedgerEntry, error) {
	if _, err := Apply(acc, kind, amount); err != nil {
		return nil, err
	}
	seq := NextSequence(last)
	ts := acc.IndexEvent(now, seq)
	return &LedgerEntry{
		Sequence:     seq,
		Timestamp:    ts,
		AccountID:    acc.ID,
		Kind:         kind,
		Amount:       amount,
		Counterparty: counterparty,
	}, nil
}

// DayEnd returns 23:59:59 of t's day in t's location.
func DayEnd(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// WindowStart returns the exclusive lower bound (unix seconds) of a trailing
// window of days anchored to the end of now's day.
func WindowStart(now time.Time, days int) int64 {
	return DayEnd(now).Unix() - int64(days)*86400
}
