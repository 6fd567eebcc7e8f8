// Package quote resolves symbols and fetches prices from a market-data
// provider. Providers are external I/O; every call may block and must be
// bounded by the caller (see Bounded).
package quote

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/cardbank/pkg/bank"
)

// Provider is the market-data collaborator the engine consumes.
type Provider interface {
	// ResolveSymbol maps a ticker or company name to a canonical ticker.
	ResolveSymbol(ctx context.Context, text string) (string, error)

	// LatestPrice returns the last traded price of ticker.
	LatestPrice(ctx context.Context, ticker string) (decimal.Decimal, error)

	// History returns bars for ticker over period at interval, oldest first.
	History(ctx context.Context, ticker string, period Period, interval Interval) ([]Bar, error)
}

// Bar is one OHLCV sample.
type Bar struct {
	Time   time.Time       `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume uint64          `json:"volume"`
}

// Unit of an interval.
type Unit string

const (
	Minute Unit = "Min"
	Hour   Unit = "Hour"
	Day    Unit = "Day"
	Week   Unit = "Week"
	Month  Unit = "Month"
)

// Interval is a bar width such as 5 Minute.
type Interval struct {
	N    int
	Unit Unit
}

// Period is a lookback span ending now.
type Period struct {
	Name string
	Span time.Duration
}

var intervals = map[string]Interval{
	"1m":  {1, Minute},
	"5m":  {5, Minute},
	"15m": {15, Minute},
	"30m": {30, Minute},
	"1h":  {1, Hour},
	"1d":  {1, Day},
	"1wk": {1, Week},
	"1mo": {1, Month},
}

const day = 24 * time.Hour

var periods = map[string]time.Duration{
	"1d":  day,
	"5d":  5 * day,
	"1mo": 30 * day,
	"3mo": 91 * day,
	"6mo": 182 * day,
	"1y":  365 * day,
	"2y":  730 * day,
	"5y":  1826 * day,
}

// ParseInterval accepts 1m, 5m, 15m, 30m, 1h, 1d, 1wk, 1mo.
func ParseInterval(s string) (Interval, error) {
	iv, ok := intervals[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return Interval{}, bank.Errorf(bank.CodeInvalidInput, "unsupported interval %q", s)
	}
	return iv, nil
}

// ParsePeriod accepts 1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y.
func ParsePeriod(s string) (Period, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	span, ok := periods[name]
	if !ok {
		return Period{}, bank.Errorf(bank.CodeInvalidInput, "unsupported period %q", s)
	}
	return Period{Name: name, Span: span}, nil
}

// RoundPrice rounds a raw provider price to cents.
func RoundPrice(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}
