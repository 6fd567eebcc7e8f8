package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/cardbank/pkg/auth"
	"github.com/uhyunpark/cardbank/pkg/bank"
	"github.com/uhyunpark/cardbank/pkg/quote"
	"github.com/uhyunpark/cardbank/pkg/storage"
	"github.com/uhyunpark/cardbank/pkg/util"
)

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

// seqJournal records the sequence of every appended entry.
type seqJournal struct {
	mu   sync.Mutex
	seqs []int64
}

func (j *seqJournal) Append(e *bank.LedgerEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seqs = append(j.seqs, e.Sequence)
}

func (j *seqJournal) sequences() []int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]int64(nil), j.seqs...)
}

type fixture struct {
	eng     *Engine
	store   *storage.MemStore
	quotes  *quote.Static
	clock   *util.ManualClock
	journal *seqJournal

	mu     sync.Mutex
	events []Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   storage.NewMemStore(),
		quotes:  quote.NewStatic(),
		clock:   util.NewManualClock(testNow),
		journal: &seqJournal{},
	}
	f.quotes.SetPrice("AAPL", "Apple Inc.", decimal.NewFromInt(100))
	cfg := DefaultConfig()
	cfg.QuoteTimeout = 200 * time.Millisecond
	f.eng = New(cfg, Deps{
		Store:      f.store,
		Quotes:     f.quotes,
		Authorizer: auth.NewAuthorizer("connection_key"),
		Clock:      f.clock,
		Journal:    f.journal,
	})
	f.eng.OnCommit(func(ev Event) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, ev)
	})
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// funded registers holder, credits amount and connects "discord".
func (f *fixture) funded(t *testing.T, holder, amount string) string {
	t.Helper()
	ctx := context.Background()
	if _, err := f.eng.Register(ctx, holder, "Visa", "Classic"); err != nil {
		t.Fatalf("register %s: %v", holder, err)
	}
	if amount != "" {
		if _, err := f.eng.Transact(ctx, TransactRequest{Holder: holder, Counterparty: "faucet", Kind: "credit", Amount: amount}); err != nil {
			t.Fatalf("fund %s: %v", holder, err)
		}
	}
	res, err := f.eng.Connect(ctx, holder, "discord")
	if err != nil {
		t.Fatalf("connect %s: %v", holder, err)
	}
	return res.Token
}

func (f *fixture) lastSeq(t *testing.T) int64 {
	t.Helper()
	seq, err := f.store.LastSequence()
	if err != nil {
		t.Fatalf("last sequence: %v", err)
	}
	return seq
}

func (f *fixture) balance(t *testing.T, holder string) decimal.Decimal {
	t.Helper()
	b, err := f.eng.Balance(context.Background(), holder)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return b
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	acc, err := f.eng.Register(ctx, "alice", "visa", "infinite")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(acc.CardNumber) != 16 || acc.CardNumber[:4] != "4787" {
		t.Errorf("card number = %s", acc.CardNumber)
	}
	if acc.Scheme != "Visa" || acc.CardType != "Infinite" {
		t.Errorf("scheme/type = %s/%s", acc.Scheme, acc.CardType)
	}
	if !acc.Balance.IsZero() {
		t.Errorf("new balance = %s", acc.Balance)
	}

	if _, err := f.eng.Register(ctx, "alice", "MasterCard", "Classic"); !bank.IsCode(err, bank.CodeAlreadyRegistered) {
		t.Errorf("second register err = %v, want AlreadyRegistered", err)
	}
	if _, err := f.eng.Register(ctx, "bob", "Discover", "Classic"); !bank.IsCode(err, bank.CodeInvalidScheme) {
		t.Errorf("bad scheme err = %v", err)
	}

	// same holder and clock in a fresh store reproduces the same card
	g := newFixture(t)
	again, err := g.eng.Register(ctx, "alice", "Visa", "Infinite")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if again.CardNumber != acc.CardNumber || again.VerifyCode != acc.VerifyCode {
		t.Errorf("card not reproducible: %s/%s vs %s/%s", again.CardNumber, again.VerifyCode, acc.CardNumber, acc.VerifyCode)
	}

	cards, err := f.eng.Cards(ctx, "alice")
	if err != nil || len(cards) != 1 || cards[0] != "Visa Black Card" {
		t.Errorf("cards = %v, %v", cards, err)
	}
}

func TestTransact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.eng.Register(ctx, "alice", "Visa", "Classic"); err != nil {
		t.Fatal(err)
	}

	res, err := f.eng.Transact(ctx, TransactRequest{Holder: "alice", Counterparty: "bob", Kind: "credit", Amount: "100"})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if res.Entry.Sequence != 1 || !res.Account.Balance.Equal(dec("100")) {
		t.Errorf("credit seq/balance = %d/%s", res.Entry.Sequence, res.Account.Balance)
	}

	res, err = f.eng.Transact(ctx, TransactRequest{Holder: "alice", Counterparty: "bob", Kind: "Debit", Amount: "30.5"})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if res.Entry.Sequence != 2 || !res.Account.Balance.Equal(dec("69.5")) {
		t.Errorf("debit seq/balance = %d/%s", res.Entry.Sequence, res.Account.Balance)
	}

	tests := []struct {
		name string
		req  TransactRequest
		want bank.Code
	}{
		{"overdraw", TransactRequest{Holder: "alice", Counterparty: "bob", Kind: "debit", Amount: "70"}, bank.CodeInsufficientFunds},
		{"zero", TransactRequest{Holder: "alice", Counterparty: "bob", Kind: "credit", Amount: "0"}, bank.CodeInvalidAmount},
		{"negative", TransactRequest{Holder: "alice", Counterparty: "bob", Kind: "credit", Amount: "-5"}, bank.CodeInvalidAmount},
		{"garbage", TransactRequest{Holder: "alice", Counterparty: "bob", Kind: "credit", Amount: "lots"}, bank.CodeInvalidAmount},
		{"huge exponent", TransactRequest{Holder: "alice", Counterparty: "bob", Kind: "credit", Amount: "1e20000000"}, bank.CodeInvalidAmount},
		{"tiny exponent", TransactRequest{Holder: "alice", Counterparty: "bob", Kind: "credit", Amount: "1e-1000000"}, bank.CodeInvalidAmount},
		{"bad kind", TransactRequest{Holder: "alice", Counterparty: "bob", Kind: "refund", Amount: "1"}, bank.CodeInvalidInput},
		{"unknown holder", TransactRequest{Holder: "mallory", Counterparty: "bob", Kind: "credit", Amount: "1"}, bank.CodeNoSuchAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.eng.Transact(ctx, tt.req)
			if !bank.IsCode(err, tt.want) {
				t.Fatalf("err = %v, want %s", err, tt.want)
			}
			if got := f.balance(t, "alice"); !got.Equal(dec("69.5")) {
				t.Errorf("balance moved to %s", got)
			}
			if seq := f.lastSeq(t); seq != 2 {
				t.Errorf("ledger grew to %d", seq)
			}
		})
	}
}

func TestConnectIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.eng.Register(ctx, "alice", "Visa", "Classic"); err != nil {
		t.Fatal(err)
	}

	first, err := f.eng.Connect(ctx, "alice", "discord")
	if err != nil || !first.Created {
		t.Fatalf("first connect = %+v, %v", first, err)
	}
	f.clock.Advance(time.Hour)
	second, err := f.eng.Connect(ctx, "alice", "discord")
	if err != nil || second.Created {
		t.Fatalf("second connect = %+v, %v", second, err)
	}
	if first.Token != second.Token {
		t.Errorf("tokens differ")
	}

	acc, _ := f.eng.Account(ctx, "alice")
	if n := len(acc.Connections["discord"]); n != 1 {
		t.Errorf("connections = %d, want 1", n)
	}

	if _, err := f.eng.Connect(ctx, "nobody", "discord"); !bank.IsCode(err, bank.CodeNoSuchAccount) {
		t.Errorf("unknown holder err = %v", err)
	}
}

func TestVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := f.funded(t, "alice", "")

	if _, err := f.eng.Verify(ctx, "alice", "discord", token); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
	for _, tc := range []struct{ platform, token string }{
		{"telegram", token},
		{"discord", "forged"},
	} {
		_, err := f.eng.Verify(ctx, "alice", tc.platform, tc.token)
		if bank.KindOf(err) != bank.KindAuthorization {
			t.Errorf("Verify(%s, %s) err = %v, want authorization failure", tc.platform, tc.token, err)
		}
	}
}

func TestOpenCloseRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := f.funded(t, "alice", "2000")
	seq0 := f.lastSeq(t)

	opened, err := f.eng.OpenPosition(ctx, OpenRequest{
		Holder: "alice", Platform: "discord", Token: token,
		Symbol: "apple", Hand: "10", Leverage: "100", Direction: "long",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if opened.Position.Symbol != "AAPL" {
		t.Errorf("symbol = %s, want AAPL", opened.Position.Symbol)
	}
	if !opened.Cost.Equal(dec("1000")) {
		t.Errorf("cost = %s, want 1000", opened.Cost)
	}
	if got := f.balance(t, "alice"); !got.Equal(dec("1000")) {
		t.Errorf("balance after open = %s", got)
	}
	if seq := f.lastSeq(t); seq != seq0+1 {
		t.Errorf("open appended %d entries", seq-seq0)
	}

	f.quotes.SetPrice("AAPL", "Apple Inc.", dec("110"))
	f.clock.Advance(time.Minute)

	closed, err := f.eng.ClosePosition(ctx, CloseRequest{
		Holder: "alice", Platform: "discord", Token: token,
		Symbol: "aapl", OpenedAt: opened.Position.OpenedAt,
	})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !closed.Settlement.Earning.Equal(dec("100")) || !closed.Settlement.Payout.Equal(dec("1100")) {
		t.Errorf("earning/payout = %s/%s, want 100/1100", closed.Settlement.Earning, closed.Settlement.Payout)
	}
	if got := f.balance(t, "alice"); !got.Equal(dec("2100")) {
		t.Errorf("balance after close = %s, want 2100", got)
	}
	if seq := f.lastSeq(t); seq != seq0+2 {
		t.Errorf("close appended %d entries", seq-seq0-1)
	}
	open, _ := f.eng.OpenPositions(ctx, "alice")
	if len(open) != 0 {
		t.Errorf("open positions = %d, want 0", len(open))
	}

	_, err = f.eng.ClosePosition(ctx, CloseRequest{
		Holder: "alice", Platform: "discord", Token: token,
		Symbol: "AAPL", OpenedAt: opened.Position.OpenedAt,
	})
	if !bank.IsCode(err, bank.CodePositionNotFound) {
		t.Errorf("double close err = %v, want PositionNotFound", err)
	}
}

func TestOpenRejectsBeforeMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := f.funded(t, "alice", "500")

	base := OpenRequest{Holder: "alice", Platform: "discord", Token: token, Symbol: "AAPL", Hand: "1", Leverage: "100", Direction: "Long"}
	tests := []struct {
		name   string
		mutate func(*OpenRequest)
		want   bank.Code
	}{
		{"zero leverage", func(r *OpenRequest) { r.Leverage = "0" }, bank.CodeInvalidLeverage},
		{"zero hand", func(r *OpenRequest) { r.Hand = "0" }, bank.CodeInvalidHand},
		{"huge hand", func(r *OpenRequest) { r.Hand = "1e20000000" }, bank.CodeInvalidHand},
		{"tiny hand", func(r *OpenRequest) { r.Hand = "1e-1000000" }, bank.CodeInvalidHand},
		{"huge leverage", func(r *OpenRequest) { r.Leverage = "1e20000000" }, bank.CodeInvalidLeverage},
		{"tiny leverage", func(r *OpenRequest) { r.Leverage = "1e-1000000" }, bank.CodeInvalidLeverage},
		{"bad direction", func(r *OpenRequest) { r.Direction = "sideways" }, bank.CodeInvalidDirection},
		{"bad token", func(r *OpenRequest) { r.Token = "nope" }, bank.CodeTokenMismatch},
		{"unknown symbol", func(r *OpenRequest) { r.Symbol = "NOPE" }, bank.CodeSymbolNotFound},
		{"too expensive", func(r *OpenRequest) { r.Hand = "6" }, bank.CodeInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			_, err := f.eng.OpenPosition(ctx, req)
			if !bank.IsCode(err, tt.want) {
				t.Fatalf("err = %v, want %s", err, tt.want)
			}
			if got := f.balance(t, "alice"); !got.Equal(dec("500")) {
				t.Errorf("balance = %s, want 500", got)
			}
			if seq := f.lastSeq(t); seq != 1 {
				t.Errorf("ledger length = %d, want 1", seq)
			}
		})
	}
}

func TestQuoteFailureAbortsWithoutMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := f.funded(t, "alice", "1000")

	opened, err := f.eng.OpenPosition(ctx, OpenRequest{Holder: "alice", Platform: "discord", Token: token, Symbol: "AAPL", Hand: "1", Leverage: "100", Direction: "Short"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seq := f.lastSeq(t)
	bal := f.balance(t, "alice")

	f.quotes.SetFailure(0, errors.New("upstream 502"))
	_, err = f.eng.OpenPosition(ctx, OpenRequest{Holder: "alice", Platform: "discord", Token: token, Symbol: "AAPL", Hand: "1", Leverage: "100", Direction: "Long"})
	if !bank.IsCode(err, bank.CodeQuoteUnavailable) {
		t.Errorf("open err = %v, want QuoteUnavailable", err)
	}

	f.quotes.SetFailure(time.Second, nil)
	closeReq := CloseRequest{Holder: "alice", Platform: "discord", Token: token, Symbol: "AAPL", OpenedAt: opened.Position.OpenedAt}
	if _, err := f.eng.ClosePosition(ctx, closeReq); !bank.IsCode(err, bank.CodeTimeout) {
		t.Errorf("close err = %v, want Timeout", err)
	}

	if got := f.lastSeq(t); got != seq {
		t.Errorf("ledger grew from %d to %d", seq, got)
	}
	if got := f.balance(t, "alice"); !got.Equal(bal) {
		t.Errorf("balance moved from %s to %s", bal, got)
	}
	open, _ := f.eng.OpenPositions(ctx, "alice")
	if len(open) != 1 {
		t.Errorf("position lost: %d open", len(open))
	}

	f.quotes.SetFailure(0, nil)
	if _, err := f.eng.ClosePosition(ctx, closeReq); err != nil {
		t.Errorf("close after recovery: %v", err)
	}
}

func TestCloseClampsNegativePayout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := f.funded(t, "alice", "10")

	opened, err := f.eng.OpenPosition(ctx, OpenRequest{Holder: "alice", Platform: "discord", Token: token, Symbol: "AAPL", Hand: "1", Leverage: "1000", Direction: "long"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.quotes.SetPrice("AAPL", "Apple Inc.", dec("50"))

	closed, err := f.eng.ClosePosition(ctx, CloseRequest{Holder: "alice", Platform: "discord", Token: token, Symbol: "AAPL", OpenedAt: opened.Position.OpenedAt})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !closed.Settlement.Payout.IsZero() || !closed.Settlement.Shortfall.Equal(dec("490")) {
		t.Errorf("payout/shortfall = %s/%s", closed.Settlement.Payout, closed.Settlement.Shortfall)
	}
	if got := f.balance(t, "alice"); !got.IsZero() {
		t.Errorf("balance = %s, want 0", got)
	}
	if closed.Entry.Kind != bank.Credit || !closed.Entry.Amount.IsZero() {
		t.Errorf("settlement entry = %+v", closed.Entry)
	}
}

func TestConcurrentCloseSettlesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := f.funded(t, "alice", "1000")

	opened, err := f.eng.OpenPosition(ctx, OpenRequest{Holder: "alice", Platform: "discord", Token: token, Symbol: "AAPL", Hand: "1", Leverage: "100", Direction: "long"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seq := f.lastSeq(t)
	f.quotes.SetFailure(20*time.Millisecond, nil)

	const n = 4
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.eng.ClosePosition(ctx, CloseRequest{Holder: "alice", Platform: "discord", Token: token, Symbol: "AAPL", OpenedAt: opened.Position.OpenedAt})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !bank.IsCode(err, bank.CodePositionNotFound):
			t.Errorf("unexpected err = %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("%d closes succeeded, want 1", ok)
	}
	if got := f.lastSeq(t); got != seq+1 {
		t.Errorf("ledger grew by %d, want 1", got-seq)
	}
	if got := f.balance(t, "alice"); !got.Equal(dec("1000")) {
		t.Errorf("balance = %s, want 1000", got)
	}
}

func TestConcurrentTransactsKeepSequenceDense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.funded(t, "alice", "")

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.eng.Transact(ctx, TransactRequest{Holder: "alice", Counterparty: "bob", Kind: "credit", Amount: "1"}); err != nil {
				t.Errorf("credit: %v", err)
			}
		}()
	}
	wg.Wait()

	entries, err := f.eng.Ledger(ctx, 1, 0)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(entries) != n {
		t.Fatalf("entries = %d, want %d", len(entries), n)
	}
	for i, e := range entries {
		if e.Sequence != int64(i+1) {
			t.Errorf("entry %d has sequence %d", i, e.Sequence)
		}
	}
	if got := f.balance(t, "alice"); !got.Equal(dec("20")) {
		t.Errorf("balance = %s, want 20", got)
	}

	journaled := f.journal.sequences()
	if len(journaled) != n {
		t.Fatalf("journal lines = %d, want %d", len(journaled), n)
	}
	for i, seq := range journaled {
		if seq != int64(i+1) {
			t.Errorf("journal line %d has sequence %d, want %d", i, seq, i+1)
		}
	}
}

func TestHistoryWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.funded(t, "alice", "")
	f.funded(t, "bob", "")

	credit := func(holder string, at time.Time) {
		f.clock.Set(at)
		if _, err := f.eng.Transact(ctx, TransactRequest{Holder: holder, Counterparty: "x", Kind: "credit", Amount: "1"}); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}
	credit("alice", testNow.Add(-8*24*time.Hour))
	credit("alice", testNow.Add(-24*time.Hour))
	credit("bob", testNow)
	credit("alice", testNow)
	f.clock.Set(testNow)

	got, err := f.eng.History(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("history = %d entries, want 2", len(got))
	}
	if got[0].Sequence != 2 || got[1].Sequence != 4 {
		t.Errorf("sequences = %d,%d, want 2,4", got[0].Sequence, got[1].Sequence)
	}

	all, _ := f.eng.History(ctx, "alice", 30)
	if len(all) != 3 {
		t.Errorf("30-day history = %d entries, want 3", len(all))
	}
}

func TestCommitFailureHasNoEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.funded(t, "alice", "10")

	f.store.FailCommit = errors.New("disk full")
	_, err := f.eng.Transact(ctx, TransactRequest{Holder: "alice", Counterparty: "bob", Kind: "debit", Amount: "5"})
	if bank.KindOf(err) != bank.KindDependency {
		t.Fatalf("err = %v, want dependency failure", err)
	}
	if got := f.balance(t, "alice"); !got.Equal(dec("10")) {
		t.Errorf("balance = %s, want 10", got)
	}
	if seq := f.lastSeq(t); seq != 1 {
		t.Errorf("ledger length = %d, want 1", seq)
	}
	if got := f.journal.sequences(); len(got) != 1 {
		t.Errorf("journal = %v, want only the funding entry", got)
	}
}

func TestEventsFollowCommits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := f.funded(t, "alice", "100")
	if _, err := f.eng.OpenPosition(ctx, OpenRequest{Holder: "alice", Platform: "discord", Token: token, Symbol: "AAPL", Hand: "1", Leverage: "100", Direction: "long"}); err != nil {
		t.Fatal(err)
	}
	_, _ = f.eng.Transact(ctx, TransactRequest{Holder: "alice", Counterparty: "bob", Kind: "debit", Amount: "1000"})

	f.mu.Lock()
	defer f.mu.Unlock()
	want := []EventType{EventRegister, EventTransaction, EventConnect, EventPositionOpen}
	if len(f.events) != len(want) {
		t.Fatalf("events = %d, want %d", len(f.events), len(want))
	}
	for i, ev := range f.events {
		if ev.Type != want[i] {
			t.Errorf("event %d = %s, want %s", i, ev.Type, want[i])
		}
	}
	if f.events[3].Position == nil || f.events[3].Entry == nil {
		t.Errorf("position_open event missing payload")
	}
}

func TestQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.funded(t, "alice", "")

	ok, err := f.eng.AccountExists(ctx, "alice")
	if err != nil || !ok {
		t.Errorf("AccountExists(alice) = %v, %v", ok, err)
	}
	ok, err = f.eng.AccountExists(ctx, "nobody")
	if err != nil || ok {
		t.Errorf("AccountExists(nobody) = %v, %v", ok, err)
	}
	if _, err := f.eng.Balance(ctx, "nobody"); !bank.IsCode(err, bank.CodeNoSuchAccount) {
		t.Errorf("balance err = %v", err)
	}

	f.quotes.SetPrice("MSFT", "Microsoft Corporation", dec("412.345"))
	q, err := f.eng.Price(ctx, "microsoft")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if q.Symbol != "MSFT" || !q.Price.Equal(dec("412.35")) {
		t.Errorf("quote = %+v", q)
	}

	f.quotes.SetBars("MSFT", []quote.Bar{{Time: testNow, Close: dec("1")}})
	sym, bars, err := f.eng.PriceHistory(ctx, "MSFT", "5d", "1h")
	if err != nil || sym != "MSFT" || len(bars) != 1 {
		t.Errorf("history = %s, %d bars, %v", sym, len(bars), err)
	}
	if _, _, err := f.eng.PriceHistory(ctx, "MSFT", "7d", "1h"); !bank.IsCode(err, bank.CodeInvalidInput) {
		t.Errorf("bad period err = %v", err)
	}
}
