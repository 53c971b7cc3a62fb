// Package api exposes the launchpad, staking and governance engines over
// HTTP. Callers identify themselves with the X-Caller header; amounts are
// decimal strings of sub-units.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"meme-ledger/internal/amm"
	"meme-ledger/internal/domain"
	"meme-ledger/internal/governance"
	"meme-ledger/internal/launchpad"
	"meme-ledger/internal/observability"
	"meme-ledger/internal/staking"
	"meme-ledger/internal/storage"
)

// CallerHeader carries the identity of the account making a request.
const CallerHeader = "X-Caller"

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxBodyBytes    = 1 << 20
)

// Options configures a Server. The three engines are required.
type Options struct {
	Launchpad  *launchpad.Controller
	Staking    *staking.Engine
	Governance *governance.Engine

	Events    storage.EventStore    // optional; history routes 503 without it
	Purchases storage.PurchaseStore // optional
	Router    amm.Router            // optional; liquidity routes 503 without it
	Feed      http.Handler          // optional; served at /ws/events
	Ledger    Snapshotter           // optional; served at /api/ledger/stats

	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer // default: prometheus.DefaultGatherer
	Version  string
	Logger   zerolog.Logger
}

// Server is the HTTP API.
type Server struct {
	launchpad  *launchpad.Controller
	staking    *staking.Engine
	governance *governance.Engine
	events     storage.EventStore
	purchases  storage.PurchaseStore
	amm        amm.Router
	feed       http.Handler
	ledger     Snapshotter
	metrics    *observability.Metrics
	gatherer   prometheus.Gatherer
	version    string
	started    time.Time
	logger     zerolog.Logger
	router     chi.Router
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	if opts.Launchpad == nil || opts.Staking == nil || opts.Governance == nil {
		return nil, fmt.Errorf("api: launchpad, staking and governance are required: %w", domain.ErrInvalidInput)
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		launchpad:  opts.Launchpad,
		staking:    opts.Staking,
		governance: opts.Governance,
		events:     opts.Events,
		purchases:  opts.Purchases,
		amm:        opts.Router,
		feed:       opts.Feed,
		ledger:     opts.Ledger,
		metrics:    opts.Metrics,
		gatherer:   gatherer,
		version:    opts.Version,
		started:    time.Now(),
		logger:     opts.Logger.With().Str("component", "api").Logger(),
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(s.logger))
	r.Use(observability.RequestMetrics(s.metrics))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", observability.HandlerFor(s.gatherer))
	if s.feed != nil {
		r.Handle("/ws/events", s.feed)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/native/credit", s.op("credit_native", s.creditNative))
		r.Get("/holders/{holder}/tokens", s.op("user_holdings", s.userHoldings))
		r.Get("/voting/active", s.op("active_voting_tokens", s.activeVoting))
		if s.ledger != nil {
			r.Get("/ledger/stats", s.op("ledger_stats", s.ledgerStats))
		}

		r.Route("/tokens", func(r chi.Router) {
			r.Post("/", s.op("create_token", s.createToken))
			r.Get("/", s.op("list_tokens", s.listTokens))

			r.Route("/{address}", func(r chi.Router) {
				r.Get("/", s.op("get_token", s.getToken))
				r.Get("/quote", s.op("quote", s.quote))
				r.Post("/buy", s.op("buy_token", s.buyToken))
				r.Put("/spotlight", s.op("set_spotlight", s.setSpotlight))

				r.Post("/approve", s.op("approve", s.approve))
				r.Post("/stake", s.op("stake", s.stake))
				r.Post("/unstake", s.op("unstake", s.unstake))
				r.Post("/claim", s.op("claim_reward", s.claimReward))
				r.Get("/stakes/{holder}", s.op("get_stake", s.getStake))
				r.Get("/stakers", s.op("stake_holders", s.stakeHolders))

				r.Get("/voting", s.op("voting_status", s.votingStatus))
				r.Post("/voting/start", s.op("start_voting", s.startVoting))
				r.Post("/voting/vote", s.op("vote", s.vote))
				r.Post("/voting/end", s.op("end_voting", s.endVoting))

				r.Get("/events", s.op("token_events", s.tokenEvents))
				r.Get("/purchases", s.op("token_purchases", s.tokenPurchases))

				r.Get("/liquidity", s.op("get_pair", s.getPair))
				r.Post("/liquidity", s.op("add_liquidity", s.addLiquidity))
			})
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"journal": s.events != nil,
		"amm":     s.amm != nil,
	})
}

// opFunc handles one API operation. A nil error writes body with status.
type opFunc func(r *http.Request) (status int, body any, err error)

// op adapts fn to an http.HandlerFunc, mapping errors to their status and
// code and recording the outcome under name.
func (s *Server) op(name string, fn opFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status, body, err := fn(r)

		code := "ok"
		if err != nil {
			status, code = classify(err)
			body = errorResponse{Error: err.Error(), Code: code}
			if status >= http.StatusInternalServerError {
				s.logger.Error().Err(err).Str("operation", name).Msg("operation failed")
			}
		}
		s.metrics.ObserveOperation(name, code, time.Since(start))
		writeJSON(w, status, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", domain.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// caller returns the X-Caller identity.
func caller(r *http.Request) (domain.Address, error) {
	raw := r.Header.Get(CallerHeader)
	if raw == "" {
		return "", ErrMissingCaller
	}
	addr, err := domain.ParseAddress(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", CallerHeader, err)
	}
	return addr, nil
}

// pathAddress parses a URL parameter as an address.
func pathAddress(r *http.Request, name string) (domain.Address, error) {
	addr, err := domain.ParseAddress(chi.URLParam(r, name))
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return addr, nil
}

// parseAmount parses a decimal sub-unit string. Empty is an error.
func parseAmount(name, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s %q is not a decimal integer", domain.ErrInvalidInput, name, s)
	}
	return v, nil
}

// parseOptionalAmount is parseAmount with "" mapping to zero.
func parseOptionalAmount(name, s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	return parseAmount(name, s)
}

// queryInt reads a positive integer query parameter, def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s %q", domain.ErrInvalidInput, name, raw)
	}
	return n, nil
}

// queryInt64 reads an int64 query parameter, def when absent.
func queryInt64(r *http.Request, name string, def int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", domain.ErrInvalidInput, name, raw)
	}
	return n, nil
}

// pagination reads page and size, capping size at maxPageSize.
func pagination(r *http.Request) (pageNum, pageSize int, err error) {
	if pageNum, err = queryInt(r, "page", 1); err != nil {
		return 0, 0, err
	}
	if pageSize, err = queryInt(r, "size", defaultPageSize); err != nil {
		return 0, 0, err
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return pageNum, pageSize, nil
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
