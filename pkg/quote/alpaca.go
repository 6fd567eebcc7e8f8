package quote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/cardbank/pkg/bank"
)

// AlpacaConfig holds credentials and endpoints for the Alpaca APIs.
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string // trading API, used for the asset list
	DataURL   string // market-data API
	Feed      string // "iex" or "sip"
}

// Alpaca resolves symbols against the Alpaca asset list and prices them
// from the market-data API. Calls block; wrap in Bounded.
type Alpaca struct {
	trading  *alpaca.Client
	data     *marketdata.Client
	feed     string
	registry *Registry
	logger   *zap.SugaredLogger
}

var _ Provider = (*Alpaca)(nil)

func NewAlpaca(cfg AlpacaConfig, logger *zap.SugaredLogger) *Alpaca {
	tradingOpts := alpaca.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.BaseURL != "" {
		tradingOpts.BaseURL = cfg.BaseURL
	}
	dataOpts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.DataURL != "" {
		dataOpts.BaseURL = cfg.DataURL
	}
	feed := cfg.Feed
	if feed == "" {
		feed = "iex"
	}

	return &Alpaca{
		trading:  alpaca.NewClient(tradingOpts),
		data:     marketdata.NewClient(dataOpts),
		feed:     feed,
		registry: NewRegistry(),
		logger:   logger,
	}
}

// loadAssets fetches the active US equity list once.
func (a *Alpaca) loadAssets(ctx context.Context) error {
	if a.registry.HasAssets() {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	assets, err := a.trading.GetAssets(alpaca.GetAssetsRequest{
		Status:     "active",
		AssetClass: "us_equity",
	})
	if err != nil {
		return fmt.Errorf("GetAssets: %w", err)
	}

	list := make([]Asset, 0, len(assets))
	for _, as := range assets {
		if !as.Tradable {
			continue
		}
		list = append(list, Asset{Symbol: as.Symbol, Name: as.Name})
	}
	a.registry.SetAssets(list)
	a.logger.Infow("asset_list_loaded", "count", len(list))
	return nil
}

func (a *Alpaca) ResolveSymbol(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", bank.Errorf(bank.CodeInvalidInput, "empty symbol")
	}
	if t, ok := a.registry.Lookup(text); ok {
		return t, nil
	}
	if err := a.loadAssets(ctx); err != nil {
		return "", bank.Wrap(bank.CodeQuoteUnavailable, err, "load asset list")
	}

	asset, ok := a.registry.Search(text)
	if !ok {
		return "", bank.Errorf(bank.CodeSymbolNotFound, "no stock symbol or name found for %q", text)
	}
	a.registry.Remember(text, asset.Symbol)
	return asset.Symbol, nil
}

func (a *Alpaca) LatestPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if ctx.Err() != nil {
		return decimal.Zero, ctx.Err()
	}
	trade, err := a.data.GetLatestTrade(ticker, marketdata.GetLatestTradeRequest{
		Feed: marketdata.Feed(a.feed),
	})
	if err != nil {
		return decimal.Zero, bank.Wrap(bank.CodeQuoteUnavailable, err, "GetLatestTrade "+ticker)
	}
	if trade == nil {
		return decimal.Zero, bank.Errorf(bank.CodeQuoteUnavailable, "no trade for %s", ticker)
	}
	return RoundPrice(trade.Price), nil
}

var timeFrameUnits = map[Unit]marketdata.TimeFrameUnit{
	Minute: marketdata.Min,
	Hour:   marketdata.Hour,
	Day:    marketdata.Day,
	Week:   marketdata.Week,
	Month:  marketdata.Month,
}

func (a *Alpaca) History(ctx context.Context, ticker string, period Period, interval Interval) ([]Bar, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	unit, ok := timeFrameUnits[interval.Unit]
	if !ok {
		return nil, bank.Errorf(bank.CodeInvalidInput, "unsupported interval unit %q", interval.Unit)
	}

	end := time.Now()
	raw, err := a.data.GetBars(ticker, marketdata.GetBarsRequest{
		TimeFrame: marketdata.NewTimeFrame(interval.N, unit),
		Start:     end.Add(-period.Span),
		End:       end,
		Feed:      marketdata.Feed(a.feed),
	})
	if err != nil {
		return nil, bank.Wrap(bank.CodeQuoteUnavailable, err, "GetBars "+ticker)
	}

	bars := make([]Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, Bar{
			Time:   b.Timestamp,
			Open:   RoundPrice(b.Open),
			High:   RoundPrice(b.High),
			Low:    RoundPrice(b.Low),
			Close:  RoundPrice(b.Close),
			Volume: uint64(b.Volume),
		})
	}
	return bars, nil
}
