package amm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"

	"meme-ledger/internal/clock"
	"meme-ledger/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements Router over JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	router      domain.Address
	factory     domain.Address
	client      *http.Client
	clock       clock.Clock
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithClock sets the clock deadlines are checked against.
func WithClock(clk clock.Clock) ClientOption {
	return func(c *HTTPClient) {
		c.clock = clk
	}
}

// NewHTTPClient creates a router client for the given router and factory
// deployments behind endpoint.
func NewHTTPClient(endpoint string, router, factory domain.Address, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		router:      router,
		factory:     factory,
		client:      &http.Client{Timeout: DefaultTimeout},
		clock:       clock.System{},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is an error reported by the router endpoint. It is never retried.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
// It reports whether the result was JSON null.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) (null bool, err error) {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return false, fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return false, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			return false, rpcResp.Error
		}

		if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
			return true, nil
		}
		if result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return false, fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return false, nil
	}

	return false, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *HTTPClient) now() int64 {
	return c.clock.Now().Unix()
}

// GetPair returns the pool for the two tokens, or ErrPairNotFound.
func (c *HTTPClient) GetPair(ctx context.Context, tokenA, tokenB domain.Address) (*Pair, error) {
	if err := validatePair(tokenA, tokenB); err != nil {
		return nil, err
	}

	params := []interface{}{map[string]interface{}{
		"factory": c.factory,
		"tokenA":  tokenA,
		"tokenB":  tokenB,
	}}

	var result pairResult
	null, err := c.call(ctx, "amm_getPair", params, &result)
	if err != nil {
		return nil, err
	}
	if null || result.Address == "" {
		return nil, ErrPairNotFound
	}
	return result.toPair()
}

// CreatePair creates the pool and returns its address.
func (c *HTTPClient) CreatePair(ctx context.Context, tokenA, tokenB domain.Address) (domain.Address, error) {
	if err := validatePair(tokenA, tokenB); err != nil {
		return "", err
	}

	params := []interface{}{map[string]interface{}{
		"factory": c.factory,
		"tokenA":  tokenA,
		"tokenB":  tokenB,
	}}

	var result struct {
		Pair string `json:"pair"`
	}
	if _, err := c.call(ctx, "amm_createPair", params, &result); err != nil {
		return "", err
	}
	pair, err := domain.ParseAddress(result.Pair)
	if err != nil {
		return "", fmt.Errorf("created pair address: %w", err)
	}
	return pair, nil
}

// AddLiquidity deposits both tokens into their pool.
func (c *HTTPClient) AddLiquidity(ctx context.Context, p AddLiquidityParams) (*LiquidityResult, error) {
	if err := p.validate(c.now()); err != nil {
		return nil, err
	}

	params := []interface{}{map[string]interface{}{
		"router":         c.router,
		"tokenA":         p.TokenA,
		"tokenB":         p.TokenB,
		"amountADesired": decimal(p.AmountADesired),
		"amountBDesired": decimal(p.AmountBDesired),
		"amountAMin":     decimal(p.AmountAMin),
		"amountBMin":     decimal(p.AmountBMin),
		"to":             p.To,
		"deadline":       p.Deadline,
	}}

	var result liquidityResult
	if _, err := c.call(ctx, "amm_addLiquidity", params, &result); err != nil {
		return nil, err
	}
	out, err := result.toResult()
	if err != nil {
		return nil, err
	}
	if belowMin(out.AmountA, p.AmountAMin) || belowMin(out.AmountB, p.AmountBMin) {
		return nil, ErrSlippage
	}
	return out, nil
}

// RemoveLiquidity burns pool shares for the underlying tokens.
func (c *HTTPClient) RemoveLiquidity(ctx context.Context, p RemoveLiquidityParams) (*LiquidityResult, error) {
	if err := p.validate(c.now()); err != nil {
		return nil, err
	}

	params := []interface{}{map[string]interface{}{
		"router":     c.router,
		"tokenA":     p.TokenA,
		"tokenB":     p.TokenB,
		"liquidity":  decimal(p.Liquidity),
		"amountAMin": decimal(p.AmountAMin),
		"amountBMin": decimal(p.AmountBMin),
		"to":         p.To,
		"deadline":   p.Deadline,
	}}

	var result liquidityResult
	if _, err := c.call(ctx, "amm_removeLiquidity", params, &result); err != nil {
		return nil, err
	}
	out, err := result.toResult()
	if err != nil {
		return nil, err
	}
	if belowMin(out.AmountA, p.AmountAMin) || belowMin(out.AmountB, p.AmountBMin) {
		return nil, ErrSlippage
	}
	return out, nil
}

// SwapExactTokensForTokens swaps along p.Path and fails with ErrSlippage if
// the output is below p.MinAmountOut.
func (c *HTTPClient) SwapExactTokensForTokens(ctx context.Context, p SwapParams) (*SwapResult, error) {
	if err := p.validate(c.now()); err != nil {
		return nil, err
	}

	params := []interface{}{map[string]interface{}{
		"router":       c.router,
		"amountIn":     decimal(p.AmountIn),
		"amountOutMin": decimal(p.MinAmountOut),
		"path":         p.Path,
		"to":           p.To,
		"deadline":     p.Deadline,
	}}

	var result struct {
		Amounts []string `json:"amounts"`
	}
	if _, err := c.call(ctx, "amm_swapExactTokensForTokens", params, &result); err != nil {
		return nil, err
	}
	if len(result.Amounts) != len(p.Path) {
		return nil, fmt.Errorf("swap returned %d amounts for a %d-token path", len(result.Amounts), len(p.Path))
	}

	out := &SwapResult{Amounts: make([]*big.Int, len(result.Amounts))}
	for i, s := range result.Amounts {
		v, err := parseDecimal(s)
		if err != nil {
			return nil, err
		}
		out.Amounts[i] = v
	}
	if belowMin(out.AmountOut(), p.MinAmountOut) {
		return nil, ErrSlippage
	}
	return out, nil
}

// Wire types. Amounts travel as decimal strings.

type pairResult struct {
	Address  string `json:"address"`
	Token0   string `json:"token0"`
	Token1   string `json:"token1"`
	Reserve0 string `json:"reserve0"`
	Reserve1 string `json:"reserve1"`
}

func (r pairResult) toPair() (*Pair, error) {
	p := &Pair{
		Address: domain.Address(r.Address),
		Token0:  domain.Address(r.Token0),
		Token1:  domain.Address(r.Token1),
	}
	var err error
	if p.Reserve0, err = parseDecimal(r.Reserve0); err != nil {
		return nil, err
	}
	if p.Reserve1, err = parseDecimal(r.Reserve1); err != nil {
		return nil, err
	}
	return p, nil
}

type liquidityResult struct {
	AmountA   string `json:"amountA"`
	AmountB   string `json:"amountB"`
	Liquidity string `json:"liquidity"`
}

func (r liquidityResult) toResult() (*LiquidityResult, error) {
	out := &LiquidityResult{}
	var err error
	if out.AmountA, err = parseDecimal(r.AmountA); err != nil {
		return nil, err
	}
	if out.AmountB, err = parseDecimal(r.AmountB); err != nil {
		return nil, err
	}
	if out.Liquidity, err = parseDecimal(r.Liquidity); err != nil {
		return nil, err
	}
	return out, nil
}

func decimal(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseDecimal(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("parse amount %q", s)
	}
	return v, nil
}

func belowMin(v, floor *big.Int) bool {
	return floor != nil && v.Cmp(floor) < 0
}

var _ Router = (*HTTPClient)(nil)
