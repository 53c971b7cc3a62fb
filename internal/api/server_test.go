package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-ledger/internal/amm"
	"meme-ledger/internal/clock"
	"meme-ledger/internal/domain"
	"meme-ledger/internal/governance"
	"meme-ledger/internal/launchpad"
	"meme-ledger/internal/ledger"
	"meme-ledger/internal/observability"
	"meme-ledger/internal/pricing"
	"meme-ledger/internal/staking"
	"meme-ledger/internal/storage/memory"
	"meme-ledger/internal/token/memtoken"
)

func addr(seed byte) domain.Address {
	b := make([]byte, domain.AddressLen)
	for i := range b {
		b[i] = seed
	}
	a, err := domain.AddressFromBytes(b)
	if err != nil {
		panic(err)
	}
	return a
}

var (
	owner    = addr(1)
	gate     = addr(2)
	treasury = addr(3)
	admin    = addr(4)
	custody  = addr(5)
	alice    = addr(20)
	bob      = addr(21)
)

type fixture struct {
	clock     *clock.Manual
	events    *memory.EventStore
	purchases *memory.PurchaseStore
	reg       *prometheus.Registry
	srv       *Server
}

func units(n int64) *big.Int {
	return pricing.WholeToSub(big.NewInt(n))
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		clock: clock.NewManual(time.Unix(1_700_000_000, 0)),
		reg:   prometheus.NewRegistry(),
	}

	store, err := ledger.New(ledger.Options{Owner: owner})
	require.NoError(t, err)
	require.NoError(t, store.SetAccessGate(ctx, owner, gate))

	tokens := memtoken.NewRegistry(memtoken.Options{
		NativeMinters: []domain.Address{gate},
		Minters:       []domain.Address{gate},
	})
	opts.Launchpad, err = launchpad.New(launchpad.Options{
		Ledger: store, Tokens: tokens, Clock: f.clock,
		Self: gate, Treasury: treasury, Admin: admin,
	})
	require.NoError(t, err)
	opts.Staking, err = staking.New(staking.Options{
		Ledger: store, Tokens: tokens, Clock: f.clock,
		Self: gate, Custody: custody,
	})
	require.NoError(t, err)
	opts.Governance, err = governance.New(governance.Options{
		Ledger: store, Clock: f.clock, Self: gate, Admin: admin,
	})
	require.NoError(t, err)

	if opts.Ledger == nil {
		opts.Ledger = store
	}
	opts.Metrics = observability.NewMetrics("test", f.reg)
	opts.Gatherer = f.reg
	opts.Version = "test"
	opts.Logger = zerolog.Nop()

	f.srv, err = New(opts)
	require.NoError(t, err)
	return f
}

// withStores returns a fixture whose history routes read memory stores.
func withStores(t *testing.T) *fixture {
	t.Helper()
	events := memory.NewEventStore()
	purchases := memory.NewPurchaseStore()
	f := newFixture(t, Options{Events: events, Purchases: purchases})
	f.events, f.purchases = events, purchases
	return f
}

func (f *fixture) do(t *testing.T, method, path string, from domain.Address, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if from != "" {
		req.Header.Set(CallerHeader, from.String())
	}
	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}

func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	requireStatus(t, w, status)
	assert.Equal(t, code, decodeJSON[errorResponse](t, w).Code)
}

func (f *fixture) credit(t *testing.T, to domain.Address, amount *big.Int) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/native/credit", admin, creditRequest{To: to.String(), Amount: amount.String()})
	requireStatus(t, w, http.StatusOK)
}

func (f *fixture) create(t *testing.T, creator domain.Address, symbol string) domain.Address {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/tokens", creator, createTokenRequest{
		Name: symbol + " coin", Symbol: symbol, Source: "api",
	})
	requireStatus(t, w, http.StatusCreated)
	return decodeJSON[tokenResponse](t, w).Address
}

func TestNew_RequiresEngines(t *testing.T) {
	_, err := New(Options{})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, Options{})

	w := f.do(t, http.MethodGet, "/health", "", nil)
	requireStatus(t, w, http.StatusOK)

	body := decodeJSON[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, false, body["journal"])
	assert.Equal(t, false, body["amm"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, Options{})
	f.do(t, http.MethodGet, "/api/tokens", "", nil)

	w := f.do(t, http.MethodGet, "/metrics", "", nil)
	requireStatus(t, w, http.StatusOK)
	assert.Contains(t, w.Body.String(), "test_ledger_operation_duration_seconds")
	assert.Contains(t, w.Body.String(), `operation="list_tokens"`)
}

func TestCreateAndQueryTokens(t *testing.T) {
	f := newFixture(t, Options{})
	f.credit(t, alice, units(10))

	tok := f.create(t, alice, "MEME")

	w := f.do(t, http.MethodGet, "/api/tokens/"+tok.String(), "", nil)
	requireStatus(t, w, http.StatusOK)
	got := decodeJSON[tokenResponse](t, w)
	assert.Equal(t, "MEME", got.Symbol)
	assert.Equal(t, alice, got.Creator)
	assert.Equal(t, "0", got.FundsRaised)
	assert.Equal(t, domain.DefaultSpotlight, got.Spotlight)
	assert.NotEmpty(t, got.Price)

	f.create(t, alice, "MOON")
	w = f.do(t, http.MethodGet, "/api/tokens?page=2&size=1", "", nil)
	requireStatus(t, w, http.StatusOK)
	list := decodeJSON[struct {
		Tokens []tokenResponse `json:"tokens"`
		Page   int             `json:"page"`
	}](t, w)
	require.Len(t, list.Tokens, 1)
	assert.Equal(t, "MOON", list.Tokens[0].Symbol)
	assert.Equal(t, 2, list.Page)

	w = f.do(t, http.MethodGet, "/api/holders/"+alice.String()+"/tokens", "", nil)
	requireStatus(t, w, http.StatusOK)
	held := decodeJSON[struct {
		Tokens []holdingResponse `json:"tokens"`
	}](t, w)
	require.Len(t, held.Tokens, 2)
	assert.Equal(t, tok, held.Tokens[0].Token)
	assert.Equal(t, pricing.WholeToSub(launchpad.InitialSupply).String(), held.Tokens[0].Balance)
}

func TestCreateToken_FeeBelowPlatformFee(t *testing.T) {
	f := newFixture(t, Options{})
	f.credit(t, alice, units(10))

	w := f.do(t, http.MethodPost, "/api/tokens", alice, createTokenRequest{Name: "x", Symbol: "X", FeePaid: "1"})
	requireError(t, w, http.StatusPaymentRequired, "insufficient_funds")
}

func TestQuoteAndBuy(t *testing.T) {
	f := newFixture(t, Options{})
	f.credit(t, alice, units(10))
	f.credit(t, bob, units(10))
	tok := f.create(t, alice, "MEME")

	w := f.do(t, http.MethodGet, "/api/tokens/"+tok.String()+"/quote?quantity=1000", "", nil)
	requireStatus(t, w, http.StatusOK)
	cost, ok := new(big.Int).SetString(decodeJSON[map[string]string](t, w)["cost"], 10)
	require.True(t, ok)

	payment := new(big.Int).Mul(cost, big.NewInt(2))
	w = f.do(t, http.MethodPost, "/api/tokens/"+tok.String()+"/buy", bob, buyRequest{
		Quantity: "1000", Payment: payment.String(),
	})
	requireStatus(t, w, http.StatusOK)
	got := decodeJSON[map[string]string](t, w)
	assert.Equal(t, cost.String(), got["cost"])
	assert.Equal(t, cost.String(), got["refund"])
	assert.Equal(t, "1000", got["quantity"])

	w = f.do(t, http.MethodPost, "/api/tokens/"+tok.String()+"/buy", bob, buyRequest{Quantity: "1000", Payment: "1"})
	requireError(t, w, http.StatusPaymentRequired, "insufficient_funds")
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t, Options{})
	f.credit(t, alice, units(10))
	tok := f.create(t, alice, "MEME").String()
	unknown := addr(77).String()

	tests := []struct {
		name   string
		method string
		path   string
		from   domain.Address
		body   any
		status int
		code   string
	}{
		{"missing caller", http.MethodPost, "/api/tokens/" + tok + "/buy", "", buyRequest{Quantity: "1", Payment: "1"}, http.StatusUnauthorized, "missing_caller"},
		{"unknown token", http.MethodGet, "/api/tokens/" + unknown, "", nil, http.StatusNotFound, "unknown_token"},
		{"bad address", http.MethodGet, "/api/tokens/not-an-address", "", nil, http.StatusBadRequest, "invalid_address"},
		{"bad quantity", http.MethodGet, "/api/tokens/" + tok + "/quote?quantity=abc", "", nil, http.StatusBadRequest, "invalid_input"},
		{"bad page", http.MethodGet, "/api/tokens?page=0", "", nil, http.StatusBadRequest, "invalid_input"},
		{"unknown field", http.MethodPost, "/api/tokens/" + tok + "/buy", bob, map[string]string{"qty": "1"}, http.StatusBadRequest, "invalid_input"},
		{"spotlight not admin", http.MethodPut, "/api/tokens/" + tok + "/spotlight", bob, map[string]int{"weight": 10}, http.StatusForbidden, "unauthorized"},
		{"spotlight out of range", http.MethodPut, "/api/tokens/" + tok + "/spotlight", admin, map[string]int{"weight": 101}, http.StatusBadRequest, "out_of_range"},
		{"credit not admin", http.MethodPost, "/api/native/credit", bob, creditRequest{To: bob.String(), Amount: "1"}, http.StatusForbidden, "unauthorized"},
		{"no stake", http.MethodGet, "/api/tokens/" + tok + "/stakes/" + bob.String(), "", nil, http.StatusNotFound, "no_stake"},
		{"vote not active", http.MethodPost, "/api/tokens/" + tok + "/voting/vote", bob, nil, http.StatusConflict, "not_active"},
		{"no journal", http.MethodGet, "/api/tokens/" + tok + "/events", "", nil, http.StatusServiceUnavailable, "journal_unavailable"},
		{"no router", http.MethodGet, "/api/tokens/" + tok + "/liquidity?with=" + unknown, "", nil, http.StatusServiceUnavailable, "amm_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, tt.from, tt.body)
			requireError(t, w, tt.status, tt.code)
		})
	}
}

func TestSpotlight(t *testing.T) {
	f := newFixture(t, Options{})
	f.credit(t, alice, units(10))
	tok := f.create(t, alice, "MEME")

	w := f.do(t, http.MethodPut, "/api/tokens/"+tok.String()+"/spotlight", admin, map[string]int{"weight": 0})
	requireStatus(t, w, http.StatusOK)

	w = f.do(t, http.MethodGet, "/api/tokens/"+tok.String(), "", nil)
	assert.Equal(t, uint8(0), decodeJSON[tokenResponse](t, w).Spotlight)

	w = f.do(t, http.MethodPut, "/api/tokens/"+tok.String()+"/spotlight", admin, map[string]int{})
	requireError(t, w, http.StatusBadRequest, "invalid_input")
}

func TestStakingFlow(t *testing.T) {
	f := newFixture(t, Options{})
	f.credit(t, alice, units(10))
	tok := f.create(t, alice, "MEME").String()
	amount := units(1000).String()

	w := f.do(t, http.MethodPost, "/api/tokens/"+tok+"/stake", alice, amountRequest{Amount: amount})
	requireError(t, w, http.StatusUnprocessableEntity, "transfer_failed")

	w = f.do(t, http.MethodPost, "/api/tokens/"+tok+"/approve", alice, amountRequest{Amount: amount})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, custody.String(), decodeJSON[map[string]string](t, w)["spender"])

	w = f.do(t, http.MethodPost, "/api/tokens/"+tok+"/stake", alice, amountRequest{Amount: amount})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, amount, decodeJSON[stakeResponse](t, w).Amount)

	w = f.do(t, http.MethodGet, "/api/tokens/"+tok+"/stakers?max=5", "", nil)
	requireStatus(t, w, http.StatusOK)
	stakers := decodeJSON[struct {
		Holders []domain.Address `json:"holders"`
	}](t, w)
	assert.Equal(t, []domain.Address{alice}, stakers.Holders)

	f.clock.Advance(3 * 24 * time.Hour)
	w = f.do(t, http.MethodGet, "/api/tokens/"+tok+"/stakes/"+alice.String(), "", nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, units(30).String(), decodeJSON[stakeResponse](t, w).PendingReward)

	w = f.do(t, http.MethodPost, "/api/tokens/"+tok+"/claim", alice, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, units(30).String(), decodeJSON[map[string]string](t, w)["reward"])

	w = f.do(t, http.MethodPost, "/api/tokens/"+tok+"/unstake", alice, nil)
	requireStatus(t, w, http.StatusOK)
	got := decodeJSON[map[string]string](t, w)
	assert.Equal(t, amount, got["principal"])
	assert.Equal(t, "0", got["reward"])

	w = f.do(t, http.MethodPost, "/api/tokens/"+tok+"/unstake", alice, nil)
	requireError(t, w, http.StatusNotFound, "no_stake")
}

func TestVotingFlow(t *testing.T) {
	f := newFixture(t, Options{})
	f.credit(t, alice, units(10))
	tok := f.create(t, alice, "MEME").String()

	w := f.do(t, http.MethodPost, "/api/tokens/"+tok+"/voting/start", bob, nil)
	requireError(t, w, http.StatusForbidden, "unauthorized")

	w = f.do(t, http.MethodPost, "/api/tokens/"+tok+"/voting/start", admin, nil)
	requireStatus(t, w, http.StatusOK)
	state := decodeJSON[voteStateResponse](t, w)
	assert.True(t, state.Active)
	assert.Equal(t, state.Start+governance.VotingPeriodSeconds, state.End)

	w = f.do(t, http.MethodPost, "/api/tokens/"+tok+"/voting/start", admin, nil)
	requireError(t, w, http.StatusConflict, "already_active")

	w = f.do(t, http.MethodPost, "/api/tokens/"+tok+"/voting/vote", bob, nil)
	requireStatus(t, w, http.StatusOK)
	assert.EqualValues(t, 1, decodeJSON[map[string]any](t, w)["votes"])

	w = f.do(t, http.MethodPost, "/api/tokens/"+tok+"/voting/vote", bob, nil)
	requireError(t, w, http.StatusConflict, "already_voted")

	w = f.do(t, http.MethodGet, "/api/tokens/"+tok+"/voting?voter="+bob.String(), "", nil)
	requireStatus(t, w, http.StatusOK)
	state = decodeJSON[voteStateResponse](t, w)
	assert.Equal(t, uint64(1), state.Votes)
	require.NotNil(t, state.Voted)
	assert.True(t, *state.Voted)

	w = f.do(t, http.MethodGet, "/api/voting/active", "", nil)
	requireStatus(t, w, http.StatusOK)
	active := decodeJSON[struct {
		Tokens []string `json:"tokens"`
	}](t, w)
	assert.Equal(t, []string{tok}, active.Tokens)

	w = f.do(t, http.MethodPost, "/api/tokens/"+tok+"/voting/end", bob, nil)
	requireError(t, w, http.StatusConflict, "window_open")

	w = f.do(t, http.MethodPost, "/api/tokens/"+tok+"/voting/end", admin, nil)
	requireStatus(t, w, http.StatusOK)
	outcome := decodeJSON[map[string]any](t, w)
	assert.Equal(t, false, outcome["passed"])
	assert.EqualValues(t, 1, outcome["votes"])
}

func TestLedgerStats(t *testing.T) {
	f := newFixture(t, Options{})
	f.credit(t, alice, units(10))
	tok := f.create(t, alice, "MEME")

	w := f.do(t, http.MethodPost, "/api/tokens/"+tok.String()+"/voting/start", admin, nil)
	requireStatus(t, w, http.StatusOK)
	w = f.do(t, http.MethodPost, "/api/tokens/"+tok.String()+"/voting/vote", bob, nil)
	requireStatus(t, w, http.StatusOK)

	w = f.do(t, http.MethodGet, "/api/ledger/stats", "", nil)
	requireStatus(t, w, http.StatusOK)
	got := decodeJSON[statsResponse](t, w)
	assert.Equal(t, owner, got.Owner)
	assert.Equal(t, gate, got.AccessGate)
	assert.Equal(t, 1, got.Tokens)
	assert.Equal(t, "0", got.TotalFundsRaised)
	assert.Equal(t, 0, got.Stakes)
	assert.Equal(t, 1, got.ActiveVotes)
	assert.Equal(t, 1, got.Receipts)
	assert.Equal(t, []domain.Address{tok}, got.VotingTokens)
	assert.Positive(t, got.Seq)
}

func TestHistoryRoutes(t *testing.T) {
	f := withStores(t)
	ctx := context.Background()
	tok := addr(30)

	require.NoError(t, f.events.InsertBulk(ctx, []*domain.Event{
		{Seq: 1, Kind: domain.EventTokenCreated, Token: tok, Actor: alice, Cost: big.NewInt(5), Timestamp: 100},
		{Seq: 2, Kind: domain.EventTokenPurchased, Token: tok, Actor: bob, Amount: big.NewInt(10), Cost: big.NewInt(7), Timestamp: 200},
		{Seq: 3, Kind: domain.EventStaked, Token: addr(31), Actor: bob, Amount: big.NewInt(1), Timestamp: 300},
	}))
	require.NoError(t, f.purchases.InsertBulk(ctx, []*domain.Purchase{
		{Seq: 2, Token: tok, Buyer: bob, Quantity: big.NewInt(10), Cost: big.NewInt(7), Timestamp: 200},
		{Seq: 4, Token: tok, Buyer: alice, Quantity: big.NewInt(3), Cost: big.NewInt(9), Timestamp: 400},
	}))

	w := f.do(t, http.MethodGet, "/api/tokens/"+tok.String()+"/events", "", nil)
	requireStatus(t, w, http.StatusOK)
	events := decodeJSON[struct {
		Events []struct {
			Seq  uint64 `json:"seq"`
			Kind string `json:"kind"`
		} `json:"events"`
	}](t, w)
	require.Len(t, events.Events, 2)
	assert.Equal(t, uint64(1), events.Events[0].Seq)
	assert.Equal(t, "token_purchased", events.Events[1].Kind)

	w = f.do(t, http.MethodGet, "/api/tokens/"+tok.String()+"/purchases", "", nil)
	requireStatus(t, w, http.StatusOK)
	all := decodeJSON[struct {
		Purchases []purchaseResponse `json:"purchases"`
	}](t, w)
	require.Len(t, all.Purchases, 2)
	assert.Equal(t, "7", all.Purchases[0].Cost)

	w = f.do(t, http.MethodGet, "/api/tokens/"+tok.String()+"/purchases?from=300", "", nil)
	requireStatus(t, w, http.StatusOK)
	ranged := decodeJSON[struct {
		Purchases []purchaseResponse `json:"purchases"`
	}](t, w)
	require.Len(t, ranged.Purchases, 1)
	assert.Equal(t, alice, ranged.Purchases[0].Buyer)
}

type fakeRouter struct {
	pairs   map[[2]domain.Address]*amm.Pair
	created int
	added   []amm.AddLiquidityParams
}

func (r *fakeRouter) GetPair(_ context.Context, a, b domain.Address) (*amm.Pair, error) {
	p, ok := r.pairs[[2]domain.Address{a, b}]
	if !ok {
		return nil, amm.ErrPairNotFound
	}
	return p, nil
}

func (r *fakeRouter) CreatePair(_ context.Context, a, b domain.Address) (domain.Address, error) {
	r.created++
	p := &amm.Pair{Address: addr(90), Token0: a, Token1: b, Reserve0: new(big.Int), Reserve1: new(big.Int)}
	r.pairs[[2]domain.Address{a, b}] = p
	return p.Address, nil
}

func (r *fakeRouter) AddLiquidity(_ context.Context, p amm.AddLiquidityParams) (*amm.LiquidityResult, error) {
	r.added = append(r.added, p)
	return &amm.LiquidityResult{AmountA: p.AmountADesired, AmountB: p.AmountBDesired, Liquidity: big.NewInt(42)}, nil
}

func (r *fakeRouter) RemoveLiquidity(context.Context, amm.RemoveLiquidityParams) (*amm.LiquidityResult, error) {
	return nil, amm.ErrUnavailable
}

func (r *fakeRouter) SwapExactTokensForTokens(context.Context, amm.SwapParams) (*amm.SwapResult, error) {
	return nil, amm.ErrUnavailable
}

func TestLiquidity(t *testing.T) {
	router := &fakeRouter{pairs: make(map[[2]domain.Address]*amm.Pair)}
	f := newFixture(t, Options{Router: router})
	tok, native := addr(30), addr(31)
	base := "/api/tokens/" + tok.String() + "/liquidity"

	w := f.do(t, http.MethodGet, base+"?with="+native.String(), "", nil)
	requireError(t, w, http.StatusNotFound, "pair_not_found")

	w = f.do(t, http.MethodPost, base, alice, addLiquidityRequest{
		PairToken: native.String(), AmountDesired: "100", PairAmountDesired: "50", CreatePair: true,
	})
	requireStatus(t, w, http.StatusOK)
	got := decodeJSON[map[string]string](t, w)
	assert.Equal(t, "100", got["amount"])
	assert.Equal(t, "42", got["liquidity"])
	assert.Equal(t, 1, router.created)

	require.Len(t, router.added, 1)
	assert.Equal(t, alice, router.added[0].To)
	assert.Equal(t, int64(0), router.added[0].AmountAMin.Int64())
	assert.Greater(t, router.added[0].Deadline, time.Now().Unix())

	w = f.do(t, http.MethodGet, base+"?with="+native.String(), "", nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, addr(90), decodeJSON[pairResponse](t, w).Address)

	w = f.do(t, http.MethodPost, base, "", addLiquidityRequest{PairToken: native.String()})
	requireError(t, w, http.StatusUnauthorized, "missing_caller")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrInvalidAddress, http.StatusBadRequest, "invalid_address"},
		{domain.ErrUnknownToken, http.StatusNotFound, "unknown_token"},
		{domain.ErrWindowClosed, http.StatusConflict, "window_closed"},
		{domain.ErrReentrant, http.StatusConflict, "reentrant"},
		{&amm.RPCError{Code: -32000, Message: "boom"}, http.StatusBadGateway, "amm_error"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{assert.AnError, http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		status, code := classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
