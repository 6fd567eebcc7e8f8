// Package engine runs the bank's operations: registration, peer transactions,
// platform connections and leveraged positions. Every mutation is one atomic
// store commit made under an exclusive lock; queries share a read lock.
package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/cardbank/pkg/auth"
	"github.com/uhyunpark/cardbank/pkg/bank"
	"github.com/uhyunpark/cardbank/pkg/card"
	"github.com/uhyunpark/cardbank/pkg/quote"
	"github.com/uhyunpark/cardbank/pkg/storage"
	"github.com/uhyunpark/cardbank/pkg/util"
)

type Config struct {
	SystemLabel  string        // counterparty of position debits/credits
	HistoryDays  int           // default history window
	ExpiryYears  int           // card validity
	QuoteTimeout time.Duration // bound on each quote provider call
	OpTimeout    time.Duration // bound on a whole operation, lock waits included
}

func DefaultConfig() Config {
	return Config{
		SystemLabel:  "Stock Bot",
		HistoryDays:  7,
		ExpiryYears:  5,
		QuoteTimeout: 5 * time.Second,
		OpTimeout:    15 * time.Second,
	}
}

// Deps are the collaborators the engine is built from. Clock, Journal and
// Logger are optional.
type Deps struct {
	Store      bank.Store
	Quotes     quote.Provider
	Authorizer *auth.Authorizer
	Clock      util.Clock
	Journal    storage.Journal
	Logger     *zap.SugaredLogger
}

type Engine struct {
	cfg     Config
	store   bank.Store
	quotes  quote.Provider
	auth    *auth.Authorizer
	clock   util.Clock
	journal storage.Journal
	logger  *zap.SugaredLogger
	tx      *txManager

	hooksMu sync.RWMutex
	hooks   []func(Event)
}

func New(cfg Config, deps Deps) *Engine {
	def := DefaultConfig()
	if cfg.SystemLabel == "" {
		cfg.SystemLabel = def.SystemLabel
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = def.HistoryDays
	}
	if cfg.ExpiryYears <= 0 {
		cfg.ExpiryYears = def.ExpiryYears
	}
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = def.QuoteTimeout
	}
	if deps.Clock == nil {
		deps.Clock = util.RealClock{}
	}
	if deps.Journal == nil {
		deps.Journal = storage.NewNopJournal()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop().Sugar()
	}

	return &Engine{
		cfg:     cfg,
		store:   deps.Store,
		quotes:  quote.NewBounded(deps.Quotes, cfg.QuoteTimeout),
		auth:    deps.Authorizer,
		clock:   deps.Clock,
		journal: deps.Journal,
		logger:  deps.Logger,
		tx:      newTxManager(),
	}
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.OpTimeout > 0 {
		return context.WithTimeout(ctx, e.cfg.OpTimeout)
	}
	return context.WithCancel(ctx)
}

func normalizeHolder(holder string) (string, error) {
	h := strings.TrimSpace(holder)
	if h == "" {
		return "", bank.Errorf(bank.CodeInvalidInput, "account holder is empty")
	}
	return h, nil
}

func requireField(name, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", bank.Errorf(bank.CodeInvalidInput, "%s is empty", name)
	}
	return v, nil
}

// load fetches the account for holder; the caller holds a lock.
func (e *Engine) load(holder string) (*bank.Account, error) {
	acc, err := e.store.LoadAccount(card.IdentityOf(holder))
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, bank.Errorf(bank.CodeNoSuchAccount, "no account for %q", holder)
	}
	return acc, nil
}

// verify runs the authorizer and logs which check failed. Callers only ever
// see the authorization kind, never the sub-reason.
func (e *Engine) verify(acc *bank.Account, platform, token string) error {
	if err := e.auth.Verify(acc, platform, token); err != nil {
		e.logger.Warnw("authorization_failed",
			"holder", acc.Holder,
			"platform", platform,
			"reason", string(bank.CodeOf(err)),
		)
		return err
	}
	return nil
}

// commit validates every touched account and writes tx. The context is
// checked first; once the store call starts it runs to completion. Committed
// entries go to the journal while the caller still holds the write lock, so
// journal lines follow sequence order.
func (e *Engine) commit(ctx context.Context, tx *bank.Tx) error {
	for _, acc := range tx.Accounts {
		if err := acc.Validate(); err != nil {
			e.logger.Errorw("invariant_violation", "account", acc.ID, "error", err)
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return bank.Wrap(bank.CodeTimeout, err, "operation deadline passed before commit")
	}
	if err := e.store.Commit(tx); err != nil {
		return err
	}
	for _, entry := range tx.Entries {
		e.journal.Append(entry)
	}
	return nil
}

// Register issues a card for holder.
func (e *Engine) Register(ctx context.Context, holder, scheme, cardType string) (*bank.Account, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	holder, err := normalizeHolder(holder)
	if err != nil {
		return nil, err
	}
	scheme, err = card.NormalizeScheme(scheme)
	if err != nil {
		return nil, err
	}
	cardType, err = card.NormalizeCardType(cardType)
	if err != nil {
		return nil, err
	}

	release, err := e.tx.write(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	id := card.IdentityOf(holder)
	existing, err := e.store.LoadAccount(id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, bank.Errorf(bank.CodeAlreadyRegistered, "%q already holds a card", holder)
	}

	now := e.clock.Now()
	c, err := card.Generate(card.NewRand(card.Seed(holder, now)), scheme, now, e.cfg.ExpiryYears)
	if err != nil {
		return nil, err
	}
	acc := &bank.Account{
		ID:           id,
		Holder:       holder,
		CardNumber:   c.Number,
		Expiry:       c.Expiry,
		VerifyCode:   c.VerifyCode,
		Scheme:       scheme,
		CardType:     cardType,
		Connections:  make(map[string][]bank.Connection),
		Transactions: make(map[int64]int64),
		CreatedAt:    now.Unix(),
	}
	if err := e.commit(ctx, &bank.Tx{Accounts: []*bank.Account{acc}}); err != nil {
		return nil, err
	}
	release()

	e.logger.Infow("account_registered", "holder", holder, "id", id, "scheme", scheme, "card_type", cardType)
	e.publish(Event{Type: EventRegister, Holder: holder, Time: now.Unix(), Balance: acc.Balance})
	return acc, nil
}

// TransactRequest moves money between holder and a named counterparty.
type TransactRequest struct {
	Holder       string
	Counterparty string
	Kind         string // "credit" or "debit"
	Amount       string
}

type TransactResult struct {
	Entry   *bank.LedgerEntry
	Account *bank.Account
}

// Transact applies a credit or debit and appends its ledger entry in one
// commit.
func (e *Engine) Transact(ctx context.Context, req TransactRequest) (*TransactResult, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	holder, err := normalizeHolder(req.Holder)
	if err != nil {
		return nil, err
	}
	kind, err := bank.ParseKind(req.Kind)
	if err != nil {
		return nil, err
	}
	amount, err := bank.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	counterparty, err := requireField("counterparty", req.Counterparty)
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
	last, err := e.store.LastSequence()
	if err != nil {
		return nil, err
	}
	entry, err := bank.Post(acc, last, e.clock.Now().Unix(), kind, amount, counterparty)
	if err != nil {
		return nil, err
	}
	if err := e.commit(ctx, &bank.Tx{
		Accounts: []*bank.Account{acc},
		Entries:  []*bank.LedgerEntry{entry},
	}); err != nil {
		return nil, err
	}
	release()

	e.logger.Infow("transaction_committed",
		"holder", holder,
		"seq", entry.Sequence,
		"kind", kind.String(),
		"amount", amount.String(),
		"counterparty", counterparty,
		"balance", acc.Balance.String(),
	)
	e.publish(Event{Type: EventTransaction, Holder: holder, Time: entry.Timestamp, Balance: acc.Balance, Entry: entry})
	return &TransactResult{Entry: entry, Account: acc}, nil
}

type ConnectResult struct {
	Token   string
	Created bool
}

// Connect authorizes platform to act on holder's account. Connecting the same
// platform again returns the stored token.
func (e *Engine) Connect(ctx context.Context, holder, platform string) (*ConnectResult, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	holder, err := normalizeHolder(holder)
	if err != nil {
		return nil, err
	}
	platform, err = requireField("platform", platform)
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
	now := e.clock.Now()
	token, created := e.auth.Connect(acc, platform, now)
	if created {
		if err := e.commit(ctx, &bank.Tx{Accounts: []*bank.Account{acc}}); err != nil {
			return nil, err
		}
	}
	release()

	if created {
		e.logger.Infow("platform_connected", "holder", holder, "platform", platform)
		e.publish(Event{Type: EventConnect, Holder: holder, Time: now.Unix(), Balance: acc.Balance, Platform: platform})
	}
	return &ConnectResult{Token: token, Created: created}, nil
}

// Verify checks a platform token against holder's account and returns the
// account on success.
func (e *Engine) Verify(ctx context.Context, holder, platform, token string) (*bank.Account, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	holder, err := normalizeHolder(holder)
	if err != nil {
		return nil, err
	}

	release, err := e.tx.read(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	acc, err := e.load(holder)
	if err != nil {
		return nil, err
	}
	if err := e.verify(acc, platform, token); err != nil {
		return nil, err
	}
	return acc, nil
}
