package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/cardbank/pkg/bank"
	"github.com/uhyunpark/cardbank/pkg/card"
	"github.com/uhyunpark/cardbank/pkg/quote"
)

// view runs fn on holder's account under the read lock.
func (e *Engine) view(ctx context.Context, holder string, fn func(*bank.Account) error) error {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	holder, err := normalizeHolder(holder)
	if err != nil {
		return err
	}
	release, err := e.tx.read(ctx)
	if err != nil {
		return err
	}
	defer release()

	acc, err := e.load(holder)
	if err != nil {
		return err
	}
	return fn(acc)
}

// Account returns holder's account record.
func (e *Engine) Account(ctx context.Context, holder string) (*bank.Account, error) {
	var out *bank.Account
	err := e.view(ctx, holder, func(acc *bank.Account) error {
		out = acc
		return nil
	})
	return out, err
}

func (e *Engine) Balance(ctx context.Context, holder string) (decimal.Decimal, error) {
	acc, err := e.Account(ctx, holder)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Balance, nil
}

// History returns holder's ledger entries inside a trailing window of days
// ending at the close of the current local day, oldest first. days <= 0
// uses the configured default.
func (e *Engine) History(ctx context.Context, holder string, days int) ([]*bank.LedgerEntry, error) {
	if days <= 0 {
		days = e.cfg.HistoryDays
	}
	var out []*bank.LedgerEntry
	err := e.view(ctx, holder, func(acc *bank.Account) error {
		seqs := acc.SequencesAfter(bank.WindowStart(e.clock.Now(), days))
		entries, err := e.store.LoadEntries(seqs)
		if err != nil {
			return err
		}
		out = make([]*bank.LedgerEntry, 0, len(entries))
		for _, en := range entries {
			if en.AccountID == acc.ID {
				out = append(out, en)
			}
		}
		return nil
	})
	return out, err
}

func (e *Engine) OpenPositions(ctx context.Context, holder string) ([]*bank.Position, error) {
	var out []*bank.Position
	err := e.view(ctx, holder, func(acc *bank.Account) error {
		open, err := e.store.LoadPositions(acc.ID)
		out = open
		return err
	})
	if out == nil && err == nil {
		out = []*bank.Position{}
	}
	return out, err
}

// AccountExists reports whether holder has registered. Only store failures
// are errors.
func (e *Engine) AccountExists(ctx context.Context, holder string) (bool, error) {
	err := e.view(ctx, holder, func(*bank.Account) error { return nil })
	if bank.IsCode(err, bank.CodeNoSuchAccount) {
		return false, nil
	}
	return err == nil, err
}

// Cards lists the display names of holder's cards.
func (e *Engine) Cards(ctx context.Context, holder string) ([]string, error) {
	var out []string
	err := e.view(ctx, holder, func(acc *bank.Account) error {
		name, err := card.DisplayName(acc.Scheme, acc.CardType)
		if err != nil {
			return err
		}
		out = []string{name}
		return nil
	})
	return out, err
}

// Ledger pages through the global ledger from sequence from.
func (e *Engine) Ledger(ctx context.Context, from int64, limit int) ([]*bank.LedgerEntry, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	release, err := e.tx.read(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	if from < 1 {
		from = 1
	}
	return e.store.LedgerRange(from, limit)
}

// Quote is a resolved ticker with its latest price.
type Quote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// Price resolves text to a ticker and returns its latest price rounded to
// two decimals.
func (e *Engine) Price(ctx context.Context, text string) (*Quote, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	text, err := requireField("symbol", text)
	if err != nil {
		return nil, err
	}
	ticker, err := e.quotes.ResolveSymbol(ctx, text)
	if err != nil {
		return nil, err
	}
	price, err := e.quotes.LatestPrice(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return &Quote{Symbol: ticker, Price: price.Round(2)}, nil
}

// PriceHistory resolves text and returns bars for period at interval.
func (e *Engine) PriceHistory(ctx context.Context, text, period, interval string) (string, []quote.Bar, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	text, err := requireField("symbol", text)
	if err != nil {
		return "", nil, err
	}
	p, err := quote.ParsePeriod(period)
	if err != nil {
		return "", nil, err
	}
	iv, err := quote.ParseInterval(interval)
	if err != nil {
		return "", nil, err
	}
	ticker, err := e.quotes.ResolveSymbol(ctx, text)
	if err != nil {
		return "", nil, err
	}
	bars, err := e.quotes.History(ctx, ticker, p, iv)
	if err != nil {
		return "", nil, err
	}
	return ticker, bars, nil
}
