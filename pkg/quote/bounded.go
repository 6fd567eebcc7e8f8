package quote

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/cardbank/pkg/bank"
)

// Bounded runs every call of the wrapped provider off the caller's goroutine
// and gives up after Timeout. An abandoned call is left to finish on its own;
// its result is dropped. Provider errors that are not already tagged are
// reported as QuoteUnavailable.
type Bounded struct {
	Provider Provider
	Timeout  time.Duration
}

var _ Provider = (*Bounded)(nil)

func NewBounded(p Provider, timeout time.Duration) *Bounded {
	return &Bounded{Provider: p, Timeout: timeout}
}

func (b *Bounded) ResolveSymbol(ctx context.Context, text string) (string, error) {
	return call(ctx, b.Timeout, func(ctx context.Context) (string, error) {
		return b.Provider.ResolveSymbol(ctx, text)
	})
}

func (b *Bounded) LatestPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	price, err := call(ctx, b.Timeout, func(ctx context.Context) (decimal.Decimal, error) {
		return b.Provider.LatestPrice(ctx, ticker)
	})
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, bank.Errorf(bank.CodeQuoteUnavailable, "provider returned non-positive price %s for %s", price, ticker)
	}
	return price, nil
}

func (b *Bounded) History(ctx context.Context, ticker string, period Period, interval Interval) ([]Bar, error) {
	return call(ctx, b.Timeout, func(ctx context.Context) ([]Bar, error) {
		return b.Provider.History(ctx, ticker, period, interval)
	})
}

func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return zero, bank.Wrap(bank.CodeTimeout, err, "quote request aborted")
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if ctx.Err() != nil {
				return zero, bank.Wrap(bank.CodeTimeout, r.err, "quote provider timed out")
			}
			if bank.CodeOf(r.err) == "" {
				return zero, bank.Wrap(bank.CodeQuoteUnavailable, r.err, "quote provider failed")
			}
			return zero, r.err
		}
		return r.v, nil
	case <-ctx.Done():
		return zero, bank.Wrap(bank.CodeTimeout, ctx.Err(), "quote provider timed out")
	}
}
