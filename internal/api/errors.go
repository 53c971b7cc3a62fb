package api

import (
	"context"
	"errors"
	"net/http"

	"meme-ledger/internal/amm"
	"meme-ledger/internal/domain"
	"meme-ledger/internal/storage"
	"meme-ledger/internal/token"
)

// ErrMissingCaller is returned when a write arrives without X-Caller.
var ErrMissingCaller = errors.New("missing " + CallerHeader + " header")

// errNoJournal marks history reads on a server built without stores.
var errNoJournal = errors.New("event journal not configured")

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// errorClass maps one sentinel to its status and stable code.
type errorClass struct {
	target error
	status int
	code   string
}

// errorClasses is checked in order. Sentinels that wrap ErrInvalidInput
// must come before it.
var errorClasses = []errorClass{
	{ErrMissingCaller, http.StatusUnauthorized, "missing_caller"},
	{domain.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{domain.ErrUnknownToken, http.StatusNotFound, "unknown_token"},
	{domain.ErrNoStake, http.StatusNotFound, "no_stake"},
	{amm.ErrPairNotFound, http.StatusNotFound, "pair_not_found"},
	{storage.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrInvalidAddress, http.StatusBadRequest, "invalid_address"},
	{domain.ErrOutOfRange, http.StatusBadRequest, "out_of_range"},
	{amm.ErrDeadlineExpired, http.StatusBadRequest, "deadline_expired"},
	{token.ErrInvalidAmount, http.StatusBadRequest, "invalid_input"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domain.ErrInsufficientFunds, http.StatusPaymentRequired, "insufficient_funds"},
	{domain.ErrAlreadyExists, http.StatusConflict, "already_exists"},
	{domain.ErrAlreadyActive, http.StatusConflict, "already_active"},
	{domain.ErrNotActive, http.StatusConflict, "not_active"},
	{domain.ErrWindowClosed, http.StatusConflict, "window_closed"},
	{domain.ErrWindowOpen, http.StatusConflict, "window_open"},
	{domain.ErrAlreadyVoted, http.StatusConflict, "already_voted"},
	{domain.ErrReentrant, http.StatusConflict, "reentrant"},
	{amm.ErrSlippage, http.StatusConflict, "slippage"},
	{domain.ErrTransferFailed, http.StatusUnprocessableEntity, "transfer_failed"},
	{amm.ErrUnavailable, http.StatusServiceUnavailable, "amm_unavailable"},
	{errNoJournal, http.StatusServiceUnavailable, "journal_unavailable"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
}

// classify returns the HTTP status and code for err.
func classify(err error) (int, string) {
	for _, c := range errorClasses {
		if errors.Is(err, c.target) {
			return c.status, c.code
		}
	}

	var rpcErr *amm.RPCError
	if errors.As(err, &rpcErr) {
		return http.StatusBadGateway, "amm_error"
	}
	return http.StatusInternalServerError, "internal"
}
