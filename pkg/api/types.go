package api

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/cardbank/pkg/bank"
	"github.com/uhyunpark/cardbank/pkg/engine"
	"github.com/uhyunpark/cardbank/pkg/quote"
)

// API request/response types for REST endpoints and WebSocket messages

// numeric accepts a decimal written either as a JSON string or a JSON number.
// Parsing is left to the engine so bad values get the engine's error codes.
type numeric string

func (n *numeric) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = numeric(s)
		return nil
	}
	*n = numeric(strings.TrimSpace(string(b)))
	return nil
}

// ==============================
// Requests
// ==============================

type SignupRequest struct {
	ExternalID string `json:"externalId"`
	Scheme     string `json:"scheme"`
	CardType   string `json:"cardType"`
}

type TransactionRequest struct {
	AccountHolder string  `json:"accountHolder"`
	Counterparty  string  `json:"counterparty"`
	Kind          string  `json:"kind"` // "credit" or "debit"
	Amount        numeric `json:"amount"`
}

type ConnectRequest struct {
	AccountHolder string `json:"accountHolder"`
	Platform      string `json:"platform"`
}

type OpenPositionRequest struct {
	AccountHolder string  `json:"accountHolder"`
	Platform      string  `json:"platform"`
	Token         string  `json:"token"`
	Symbol        string  `json:"symbol"`
	Hand          numeric `json:"hand"`
	Leverage      numeric `json:"leverage"` // scaled: 100 = 1x
	Direction     string  `json:"direction"`
}

type ClosePositionRequest struct {
	AccountHolder string `json:"accountHolder"`
	Platform      string `json:"platform"`
	Token         string `json:"token"`
	Symbol        string `json:"symbol"`
	OpenTimestamp int64  `json:"openTimestamp"`
}

// ==============================
// Responses
// ==============================

type SignupResponse struct {
	Holder           string `json:"holder"`
	CardNumber       string `json:"cardNumber"`
	Expiry           string `json:"expiry"`
	VerificationCode string `json:"verificationCode"`
	Scheme           string `json:"scheme"`
	CardType         string `json:"cardType"`
}

type TransactionResponse struct {
	Balance   decimal.Decimal `json:"balance"`
	Sequence  int64           `json:"sequence"`
	Timestamp int64           `json:"timestamp"`
}

type ConnectResponse struct {
	Status string `json:"status"` // "connected" or "already_connected"
	Token  string `json:"token"`
}

type OpenPositionResponse struct {
	Symbol        string          `json:"symbol"`
	Hand          decimal.Decimal `json:"hand"`
	Leverage      decimal.Decimal `json:"leverage"`
	Cost          decimal.Decimal `json:"cost"`
	EntryPrice    decimal.Decimal `json:"entryPrice"`
	Direction     string          `json:"direction"`
	OpenTimestamp int64           `json:"openTimestamp"`
	Balance       decimal.Decimal `json:"balance"`
}

type ClosePositionResponse struct {
	Symbol    string          `json:"symbol"`
	Hand      decimal.Decimal `json:"hand"`
	Leverage  decimal.Decimal `json:"leverage"`
	SellPrice decimal.Decimal `json:"sellPrice"`
	Earning   decimal.Decimal `json:"earning"`
	Principal decimal.Decimal `json:"principal"`
	Payout    decimal.Decimal `json:"payout"`
	Shortfall decimal.Decimal `json:"shortfall"`
	Balance   decimal.Decimal `json:"balance"`
}

type BalanceResponse struct {
	Holder  string          `json:"holder"`
	Balance decimal.Decimal `json:"balance"`
}

// LedgerEntryInfo is one ledger record as exposed over the API
type LedgerEntryInfo struct {
	Sequence     int64           `json:"sequence"`
	Timestamp    int64           `json:"timestamp"`
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Counterparty string          `json:"counterparty"`
}

type HistoryResponse struct {
	Holder  string            `json:"holder"`
	Days    int               `json:"days"`
	Entries []LedgerEntryInfo `json:"entries"`
}

type LedgerResponse struct {
	Entries []LedgerEntryInfo `json:"entries"`
	Next    int64             `json:"next"` // sequence to request for the following page
}

// PositionInfo represents an open position
type PositionInfo struct {
	OpenTimestamp int64           `json:"openTimestamp"`
	Symbol        string          `json:"symbol"`
	Hand          decimal.Decimal `json:"hand"`
	Leverage      decimal.Decimal `json:"leverage"`
	EntryPrice    decimal.Decimal `json:"entryPrice"`
	Direction     string          `json:"direction"`
}

type ExistsResponse struct {
	Status string `json:"status"` // "ok" or "error"
	Reason string `json:"reason,omitempty"`
}

type CardsResponse struct {
	Holder string   `json:"holder"`
	Cards  []string `json:"cards"`
}

type QuoteResponse struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

type QuoteHistoryResponse struct {
	Symbol   string      `json:"symbol"`
	Period   string      `json:"period"`
	Interval string      `json:"interval"`
	Bars     []quote.Bar `json:"bars"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==============================
// WebSocket Messages
// ==============================

// WSSubscribeRequest is sent by clients: {"op":"subscribe","channels":["ledger","account:alice"]}
type WSSubscribeRequest struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}

// WSAck answers a subscribe/unsubscribe request
type WSAck struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// EventMessage carries one commit event to a channel
type EventMessage struct {
	Channel string       `json:"channel"`
	Event   engine.Event `json:"event"`
}

func entryInfo(e *bank.LedgerEntry) LedgerEntryInfo {
	return LedgerEntryInfo{
		Sequence:     e.Sequence,
		Timestamp:    e.Timestamp,
		Kind:         e.Kind.String(),
		Amount:       e.Amount,
		Counterparty: e.Counterparty,
	}
}

func entryInfos(entries []*bank.LedgerEntry) []LedgerEntryInfo {
	out := make([]LedgerEntryInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryInfo(e))
	}
	return out
}

func positionInfo(p *bank.Position) PositionInfo {
	return PositionInfo{
		OpenTimestamp: p.OpenedAt,
		Symbol:        p.Symbol,
		Hand:          p.Hand,
		Leverage:      p.Leverage,
		EntryPrice:    p.EntryPrice,
		Direction:     string(p.Direction),
	}
}
