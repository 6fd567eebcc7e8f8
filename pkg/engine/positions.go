package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/cardbank/pkg/bank"
)

// OpenRequest buys a leveraged position. Leverage is scaled by
// bank.LeverageScale: "100" means 1x.
type OpenRequest struct {
	Holder    string
	Platform  string
	Token     string
	Symbol    string
	Hand      string
	Leverage  string
	Direction string
}

type OpenResult struct {
	Position *bank.Position
	Cost     decimal.Decimal
	Entry    *bank.LedgerEntry
	Account  *bank.Account
}

// CloseRequest sells the position identified by (Symbol, OpenedAt).
type CloseRequest struct {
	Holder   string
	Platform string
	Token    string
	Symbol   string
	OpenedAt int64
}

type CloseResult struct {
	Position   *bank.Position
	Settlement bank.Settlement
	Entry      *bank.LedgerEntry
	Account    *bank.Account
}

func parseOrder(req OpenRequest) (hand, leverage decimal.Decimal, dir bank.Direction, err error) {
	hand, err = bank.ParseDecimal(req.Hand, bank.CodeInvalidHand, "hand")
	if err != nil {
		return hand, leverage, dir, err
	}
	leverage, err = bank.ParseDecimal(req.Leverage, bank.CodeInvalidLeverage, "leverage")
	if err != nil {
		return hand, leverage, dir, err
	}
	dir, err = bank.ParseDirection(req.Direction)
	if err != nil {
		return hand, leverage, dir, err
	}
	return hand, leverage, dir, bank.ValidateOrder(hand, leverage, dir)
}

// authorize verifies the caller under a read lock before any quote call.
func (e *Engine) authorize(ctx context.Context, holder, platform, token string) (*bank.Account, []*bank.Position, error) {
	release, err := e.tx.read(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	acc, err := e.load(holder)
	if err != nil {
		return nil, nil, err
	}
	if err := e.verify(acc, platform, token); err != nil {
		return nil, nil, err
	}
	open, err := e.store.LoadPositions(acc.ID)
	if err != nil {
		return nil, nil, err
	}
	return acc, open, nil
}

// OpenPosition prices the symbol, debits the cost and records the position
// in one commit. Nothing is mutated until the price is known.
func (e *Engine) OpenPosition(ctx context.Context, req OpenRequest) (*OpenResult, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	holder, err := normalizeHolder(req.Holder)
	if err != nil {
		return nil, err
	}
	symbol, err := requireField("symbol", req.Symbol)
	if err != nil {
		return nil, err
	}
	hand, leverage, dir, err := parseOrder(req)
	if err != nil {
		return nil, err
	}

	if _, _, err := e.authorize(ctx, holder, req.Platform, req.Token); err != nil {
		return nil, err
	}

	ticker, err := e.quotes.ResolveSymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	price, err := e.quotes.LatestPrice(ctx, ticker)
	if err != nil {
		return nil, err
	}
	cost, err := bank.Cost(price, hand, leverage)
	if err != nil {
		return nil, err
	}
	if !cost.IsPositive() {
		return nil, bank.Errorf(bank.CodeInvalidAmount, "position cost must be positive: %s", cost)
	}

	release, err := e.tx.write(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	// state may have moved while the quote was in flight
	acc, err := e.load(holder)
	if err != nil {
		return nil, err
	}
	if err := e.verify(acc, req.Platform, req.Token); err != nil {
		return nil, err
	}
	if !bank.HasFunds(acc.Balance, cost) {
		return nil, bank.Errorf(bank.CodeInsufficientFunds, "insufficient balance: have %s, need %s", acc.Balance, cost)
	}
	open, err := e.store.LoadPositions(acc.ID)
	if err != nil {
		return nil, err
	}
	last, err := e.store.LastSequence()
	if err != nil {
		return nil, err
	}

	now := e.clock.Now().Unix()
	entry, err := bank.Post(acc, last, now, bank.Debit, cost, e.cfg.SystemLabel)
	if err != nil {
		return nil, err
	}
	pos := &bank.Position{
		OpenedAt:   bank.OpenStamp(open, ticker, now),
		Symbol:     ticker,
		Hand:       hand,
		Leverage:   leverage,
		EntryPrice: price,
		Direction:  dir,
	}
	next := append(append(make([]*bank.Position, 0, len(open)+1), open...), pos)

	tx := &bank.Tx{
		Accounts: []*bank.Account{acc},
		Entries:  []*bank.LedgerEntry{entry},
	}
	tx.SetPositions(acc.ID, next)
	if err := e.commit(ctx, tx); err != nil {
		return nil, err
	}
	release()

	e.logger.Infow("position_opened",
		"holder", holder,
		"symbol", ticker,
		"opened_at", pos.OpenedAt,
		"hand", hand.String(),
		"leverage", leverage.String(),
		"direction", string(dir),
		"price", price.String(),
		"cost", cost.String(),
		"seq", entry.Sequence,
	)
	e.publish(Event{Type: EventPositionOpen, Holder: holder, Time: entry.Timestamp, Balance: acc.Balance, Entry: entry, Position: pos})
	return &OpenResult{Position: pos, Cost: cost, Entry: entry, Account: acc}, nil
}

// ClosePosition prices the position first, then removes it and credits the
// payout in one commit. A position closed concurrently by another request is
// reported as PositionNotFound.
func (e *Engine) ClosePosition(ctx context.Context, req CloseRequest) (*CloseResult, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	holder, err := normalizeHolder(req.Holder)
	if err != nil {
		return nil, err
	}
	symbol, err := requireField("symbol", req.Symbol)
	if err != nil {
		return nil, err
	}

	_, open, err := e.authorize(ctx, holder, req.Platform, req.Token)
	if err != nil {
		return nil, err
	}
	i := bank.FindPosition(open, symbol, req.OpenedAt)
	if i < 0 {
		return nil, bank.Errorf(bank.CodePositionNotFound, "no open %s position at %d", symbol, req.OpenedAt)
	}
	ticker := open[i].Symbol

	price, err := e.quotes.LatestPrice(ctx, ticker)
	if err != nil {
		return nil, err
	}

	release, err := e.tx.write(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	acc, err := e.load(holder)
	if err != nil {
		return nil, err
	}
	if err := e.verify(acc, req.Platform, req.Token); err != nil {
		return nil, err
	}
	open, err = e.store.LoadPositions(acc.ID)
	if err != nil {
		return nil, err
	}
	i = bank.FindPosition(open, ticker, req.OpenedAt)
	if i < 0 {
		return nil, bank.Errorf(bank.CodePositionNotFound, "no open %s position at %d", ticker, req.OpenedAt)
	}
	pos := open[i]

	settlement, err := pos.Settle(price)
	if err != nil {
		return nil, err
	}
	last, err := e.store.LastSequence()
	if err != nil {
		return nil, err
	}
	entry, err := bank.Post(acc, last, e.clock.Now().Unix(), bank.Credit, settlement.Payout, e.cfg.SystemLabel)
	if err != nil {
		return nil, err
	}

	tx := &bank.Tx{
		Accounts: []*bank.Account{acc},
		Entries:  []*bank.LedgerEntry{entry},
	}
	tx.SetPositions(acc.ID, bank.RemovePosition(open, i))
	if err := e.commit(ctx, tx); err != nil {
		return nil, err
	}
	release()

	e.logger.Infow("position_closed",
		"holder", holder,
		"symbol", ticker,
		"opened_at", pos.OpenedAt,
		"price", price.String(),
		"earning", settlement.Earning.String(),
		"payout", settlement.Payout.String(),
		"seq", entry.Sequence,
	)
	if settlement.Shortfall.IsPositive() {
		e.logger.Warnw("settlement_shortfall",
			"holder", holder,
			"symbol", ticker,
			"shortfall", settlement.Shortfall.String(),
		)
	}
	e.publish(Event{Type: EventPositionClose, Holder: holder, Time: entry.Timestamp, Balance: acc.Balance, Entry: entry, Position: pos, Settlement: &settlement})
	return &CloseResult{Position: pos, Settlement: settlement, Entry: entry, Account: acc}, nil
}
