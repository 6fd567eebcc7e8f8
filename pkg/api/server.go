// Package api exposes the bank engine over REST and streams commit events
// over WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/cardbank/pkg/engine"
)

const maxBodyBytes = 1 << 20

// Server handles REST API and WebSocket connections
type Server struct {
	engine  *engine.Engine
	router  *mux.Router
	hub     *Hub
	logger  *zap.SugaredLogger
	origins []string
}

// NewServer creates a new API server and subscribes its hub to engine
// commits.
func NewServer(eng *engine.Engine, logger *zap.SugaredLogger, corsOrigins []string) *Server {
	s := &Server{
		engine:  eng,
		router:  mux.NewRouter(),
		hub:     NewHub(logger),
		logger:  logger,
		origins: corsOrigins,
	}
	eng.OnCommit(s.hub.Publish)

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.logRequests)

	// Cards and money
	api.HandleFunc("/signup", s.handleSignup).Methods("POST")
	api.HandleFunc("/transactions", s.handleTransaction).Methods("POST")
	api.HandleFunc("/connections", s.handleConnect).Methods("POST")

	// Positions
	api.HandleFunc("/positions/open", s.handleOpenPosition).Methods("POST")
	api.HandleFunc("/positions/close", s.handleClosePosition).Methods("POST")

	// Account queries
	api.HandleFunc("/accounts/{holder}/balance", s.handleBalance).Methods("GET")
	api.HandleFunc("/accounts/{holder}/history", s.handleHistory).Methods("GET")
	api.HandleFunc("/accounts/{holder}/positions", s.handlePositions).Methods("GET")
	api.HandleFunc("/accounts/{holder}/exists", s.handleExists).Methods("GET")
	api.HandleFunc("/accounts/{holder}/cards", s.handleCards).Methods("GET")

	// Global ledger
	api.HandleFunc("/ledger", s.handleLedger).Methods("GET")

	// Market data
	api.HandleFunc("/quotes/{symbol}", s.handleQuote).Methods("GET")
	api.HandleFunc("/quotes/{symbol}/history", s.handleQuoteHistory).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped in CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// RunHub runs the WebSocket hub until ctx is done.
func (s *Server) RunHub(ctx context.Context) { s.hub.Run(ctx) }

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("api_listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// ==============================
// Write handlers
// ==============================

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	acc, err := s.engine.Register(r.Context(), req.ExternalID, req.Scheme, req.CardType)
	if err != nil {
		s.respondErr(w, err, false)
		return
	}

	respondJSON(w, http.StatusCreated, SignupResponse{
		Holder:           acc.Holder,
		CardNumber:       acc.CardNumber,
		Expiry:           acc.Expiry,
		VerificationCode: acc.VerifyCode,
		Scheme:           acc.Scheme,
		CardType:         acc.CardType,
	})
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.engine.Transact(r.Context(), engine.TransactRequest{
		Holder:       req.AccountHolder,
		Counterparty: req.Counterparty,
		Kind:         req.Kind,
		Amount:       string(req.Amount),
	})
	if err != nil {
		s.respondErr(w, err, false)
		return
	}

	respondJSON(w, http.StatusOK, TransactionResponse{
		Balance:   res.Account.Balance,
		Sequence:  res.Entry.Sequence,
		Timestamp: res.Entry.Timestamp,
	})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.engine.Connect(r.Context(), req.AccountHolder, req.Platform)
	if err != nil {
		s.respondErr(w, err, false)
		return
	}

	status := "connected"
	if !res.Created {
		status = "already_connected"
	}
	respondJSON(w, http.StatusOK, ConnectResponse{Status: status, Token: res.Token})
}

func (s *Server) handleOpenPosition(w http.ResponseWriter, r *http.Request) {
	var req OpenPositionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.engine.OpenPosition(r.Context(), engine.OpenRequest{
		Holder:    req.AccountHolder,
		Platform:  req.Platform,
		Token:     req.Token,
		Symbol:    req.Symbol,
		Hand:      string(req.Hand),
		Leverage:  string(req.Leverage),
		Direction: req.Direction,
	})
	if err != nil {
		s.respondErr(w, err, true)
		return
	}

	p := res.Position
	respondJSON(w, http.StatusOK, OpenPositionResponse{
		Symbol:        p.Symbol,
		Hand:          p.Hand,
		Leverage:      p.Leverage,
		Cost:          res.Cost,
		EntryPrice:    p.EntryPrice,
		Direction:     string(p.Direction),
		OpenTimestamp: p.OpenedAt,
		Balance:       res.Account.Balance,
	})
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	var req ClosePositionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.engine.ClosePosition(r.Context(), engine.CloseRequest{
		Holder:   req.AccountHolder,
		Platform: req.Platform,
		Token:    req.Token,
		Symbol:   req.Symbol,
		OpenedAt: req.OpenTimestamp,
	})
	if err != nil {
		s.respondErr(w, err, true)
		return
	}

	st := res.Settlement
	respondJSON(w, http.StatusOK, ClosePositionResponse{
		Symbol:    res.Position.Symbol,
		Hand:      res.Position.Hand,
		Leverage:  res.Position.Leverage,
		SellPrice: st.SellPrice,
		Earning:   st.Earning,
		Principal: st.Principal,
		Payout:    st.Payout,
		Shortfall: st.Shortfall,
		Balance:   res.Account.Balance,
	})
}

// ==============================
// Read handlers
// ==============================

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	holder := mux.Vars(r)["holder"]
	bal, err := s.engine.Balance(r.Context(), holder)
	if err != nil {
		s.respondErr(w, err, false)
		return
	}
	respondJSON(w, http.StatusOK, BalanceResponse{Holder: holder, Balance: bal})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	holder := mux.Vars(r)["holder"]

	days := s.engine.Config().HistoryDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, codeBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	entries, err := s.engine.History(r.Context(), holder, days)
	if err != nil {
		s.respondErr(w, err, false)
		return
	}
	respondJSON(w, http.StatusOK, HistoryResponse{Holder: holder, Days: days, Entries: entryInfos(entries)})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	open, err := s.engine.OpenPositions(r.Context(), mux.Vars(r)["holder"])
	if err != nil {
		s.respondErr(w, err, false)
		return
	}
	out := make([]PositionInfo, 0, len(open))
	for _, p := range open {
		out = append(out, positionInfo(p))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleExists(w http.ResponseWriter, r *http.Request) {
	ok, err := s.engine.AccountExists(r.Context(), mux.Vars(r)["holder"])
	if err != nil {
		s.respondErr(w, err, false)
		return
	}
	if !ok {
		respondJSON(w, http.StatusOK, ExistsResponse{Status: "error", Reason: "not found"})
		return
	}
	respondJSON(w, http.StatusOK, ExistsResponse{Status: "ok"})
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	holder := mux.Vars(r)["holder"]
	cards, err := s.engine.Cards(r.Context(), holder)
	if err != nil {
		s.respondErr(w, err, false)
		return
	}
	respondJSON(w, http.StatusOK, CardsResponse{Holder: holder, Cards: cards})
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, limit := int64(1), 100
	if v := q.Get("from"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, codeBadRequest, "from must be a positive integer")
			return
		}
		from = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			respondError(w, http.StatusBadRequest, codeBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	entries, err := s.engine.Ledger(r.Context(), from, limit)
	if err != nil {
		s.respondErr(w, err, false)
		return
	}
	next := from
	if len(entries) > 0 {
		next = entries[len(entries)-1].Sequence + 1
	}
	respondJSON(w, http.StatusOK, LedgerResponse{Entries: entryInfos(entries), Next: next})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.engine.Price(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		s.respondErr(w, err, false)
		return
	}
	respondJSON(w, http.StatusOK, QuoteResponse{Symbol: q.Symbol, Price: q.Price})
}

func (s *Server) handleQuoteHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, interval := q.Get("period"), q.Get("interval")
	if period == "" {
		period = "1mo"
	}
	if interval == "" {
		interval = "1d"
	}

	ticker, bars, err := s.engine.PriceHistory(r.Context(), mux.Vars(r)["symbol"], period, interval)
	if err != nil {
		s.respondErr(w, err, false)
		return
	}
	respondJSON(w, http.StatusOK, QuoteHistoryResponse{Symbol: ticker, Period: period, Interval: interval, Bars: bars})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==============================
// Helper Functions
// ==============================

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) respondErr(w http.ResponseWriter, err error, gated bool) {
	status, body := publicError(err, gated)
	if status >= http.StatusInternalServerError {
		s.logger.Errorw("request_failed", "status", status, "error", err)
	}
	respondJSON(w, status, body)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: code, Message: message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Infow("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
