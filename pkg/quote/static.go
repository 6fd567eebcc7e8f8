package quote

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/cardbank/pkg/bank"
)

// Static serves prices from memory. It backs tests and the offline mode of
// the service. SetFailure simulates slow or failing providers.
type Static struct {
	mu       sync.RWMutex
	registry *Registry
	prices   map[string]decimal.Decimal
	bars     map[string][]Bar
	delay    time.Duration
	err      error
}

var _ Provider = (*Static)(nil)

func NewStatic() *Static {
	return &Static{
		registry: NewRegistry(),
		prices:   make(map[string]decimal.Decimal),
		bars:     make(map[string][]Bar),
	}
}

// SetPrice registers ticker (with an optional company name) at price.
func (s *Static) SetPrice(ticker, name string, price decimal.Decimal) {
	ticker = strings.ToUpper(ticker)

	s.mu.Lock()
	_, known := s.prices[ticker]
	s.prices[ticker] = price
	s.mu.Unlock()

	if !known {
		s.registry.Add(Asset{Symbol: ticker, Name: name})
	}
}

// SetBars registers history for ticker.
func (s *Static) SetBars(ticker string, bars []Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars[strings.ToUpper(ticker)] = bars
}

func (s *Static) wait(ctx context.Context) error {
	s.mu.RLock()
	delay, err := s.delay, s.err
	s.mu.RUnlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// SetFailure configures the simulated delay and error.
func (s *Static) SetFailure(delay time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay, s.err = delay, err
}

func (s *Static) ResolveSymbol(ctx context.Context, text string) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	a, ok := s.registry.Search(text)
	if !ok {
		return "", bank.Errorf(bank.CodeSymbolNotFound, "no stock symbol or name found for %q", text)
	}
	return a.Symbol, nil
}

func (s *Static) LatestPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if err := s.wait(ctx); err != nil {
		return decimal.Zero, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[strings.ToUpper(ticker)]
	if !ok {
		return decimal.Zero, bank.Errorf(bank.CodeQuoteUnavailable, "no price for %s", ticker)
	}
	return p, nil
}

func (s *Static) History(ctx context.Context, ticker string, period Period, interval Interval) ([]Bar, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	bars, ok := s.bars[strings.ToUpper(ticker)]
	if !ok {
		return nil, bank.Errorf(bank.CodeQuoteUnavailable, "no history for %s", ticker)
	}
	return append([]Bar(nil), bars...), nil
}
