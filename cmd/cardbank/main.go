package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/uhyunpark/cardbank/params"
	"github.com/uhyunpark/cardbank/pkg/api"
	"github.com/uhyunpark/cardbank/pkg/auth"
	"github.com/uhyunpark/cardbank/pkg/engine"
	"github.com/uhyunpark/cardbank/pkg/quote"
	"github.com/uhyunpark/cardbank/pkg/storage"
	"github.com/uhyunpark/cardbank/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	// Setup logging (console, plus a file when LOG_FILE is set)
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Log.File != "" {
		logger, err = util.NewLoggerWithFile(cfg.Log.File, cfg.Log.Level)
	} else {
		logger, err = util.NewLogger(cfg.Log.Level)
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Log.File, "level", cfg.Log.Level)

	if err := os.MkdirAll(cfg.Storage.DBPath, 0o755); err != nil {
		sugar.Fatalw("db_dir_failed", "path", cfg.Storage.DBPath, "err", err)
	}
	store, err := storage.NewPebbleStore(cfg.Storage.DBPath)
	if err != nil {
		sugar.Fatalw("store_open_failed", "path", cfg.Storage.DBPath, "err", err)
	}
	defer store.Close()

	if cfg.UsesDefaultSecret() {
		sugar.Warn("CONNECTION_SECRET not set; connection tokens are signed with the public default secret")
	}

	var journal storage.Journal = storage.NewNopJournal()
	if cfg.Server.TxLogFile != "" {
		fj, err := storage.NewFileJournal(cfg.Server.TxLogFile)
		if err != nil {
			sugar.Warnw("tx_log_disabled", "path", cfg.Server.TxLogFile, "err", err)
		} else {
			defer fj.Close()
			journal = fj
			sugar.Infow("tx_log_enabled", "path", cfg.Server.TxLogFile)
		}
	}

	eng := engine.New(engine.Config{
		SystemLabel:  cfg.Bank.SystemLabel,
		HistoryDays:  cfg.Bank.HistoryDays,
		ExpiryYears:  cfg.Bank.CardExpiryYears,
		QuoteTimeout: cfg.Quotes.Timeout,
		OpTimeout:    cfg.Bank.OpTimeout,
	}, engine.Deps{
		Store:      store,
		Quotes:     newProvider(cfg.Quotes, sugar),
		Authorizer: auth.NewAuthorizer(cfg.Bank.ConnectionSecret),
		Clock:      util.RealClock{},
		Journal:    journal,
		Logger:     sugar.Named("engine"),
	})

	last, err := store.LastSequence()
	if err != nil {
		sugar.Fatalw("ledger_read_failed", "err", err)
	}
	sugar.Infow("bank_starting",
		"db_path", cfg.Storage.DBPath,
		"ledger_head", last,
		"quote_provider", cfg.Quotes.Provider,
		"system_label", cfg.Bank.SystemLabel,
		"history_days", cfg.Bank.HistoryDays,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiServer := api.NewServer(eng, sugar.Named("api"), cfg.Server.CORSOrigins)
	if err := apiServer.Start(ctx, cfg.Server.Addr); err != nil {
		sugar.Errorw("api_server_failed", "err", err)
		return
	}
	sugar.Info("shutdown_complete")
}

func newProvider(cfg params.Quotes, sugar *zap.SugaredLogger) quote.Provider {
	if cfg.Provider == "static" {
		sugar.Warn("using static quote provider; prices are fixed")
		return quote.NewStatic()
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		sugar.Warn("ALPACA_API_KEY / ALPACA_API_SECRET not set; quote requests will fail")
	}
	return quote.NewAlpaca(quote.AlpacaConfig{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
		DataURL:   cfg.DataURL,
		Feed:      cfg.Feed,
	}, sugar.Named("quote"))
}
