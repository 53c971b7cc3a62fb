// Package staking lets holders lock catalog tokens in custody and accrue a
// flat daily reward, minted in the staked token.
package staking

import (
	"fmt"
	"math/big"

	"github.com/rs/zerolog"

	"meme-ledger/internal/clock"
	"meme-ledger/internal/domain"
	"meme-ledger/internal/guard"
	"meme-ledger/internal/ledger"
	"meme-ledger/internal/token"
)

const (
	// RewardRateBps is the daily reward in basis points of the stake.
	RewardRateBps = 100

	// BpsDenominator is 100% in basis points.
	BpsDenominator = 10_000

	// DaySeconds is the length of one reward period.
	DaySeconds = 86_400
)

// Options configures an Engine.
type Options struct {
	Ledger ledger.Ledger
	Tokens token.Factory
	Clock  clock.Clock // default: clock.System{}

	// Self is the ledger access gate and a registered minter of every
	// deployed token.
	Self domain.Address
	// Custody holds staked principal. Holders approve it as spender.
	Custody domain.Address

	Logger zerolog.Logger
}

// Engine implements stake, unstake and reward claims.
type Engine struct {
	ledger  ledger.Ledger
	tokens  token.Factory
	clock   clock.Clock
	self    domain.Address
	custody domain.Address
	logger  zerolog.Logger

	stakeGuard   *guard.Guard
	unstakeGuard *guard.Guard
	claimGuard   *guard.Guard
}

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Ledger == nil || opts.Tokens == nil {
		return nil, fmt.Errorf("staking: ledger and token factory are required: %w", domain.ErrInvalidInput)
	}
	if !opts.Self.Valid() || !opts.Custody.Valid() {
		return nil, fmt.Errorf("staking self and custody: %w", domain.ErrInvalidAddress)
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}

	return &Engine{
		ledger:  opts.Ledger,
		tokens:  opts.Tokens,
		clock:   clk,
		self:    opts.Self,
		custody: opts.Custody,
		logger:  opts.Logger.With().Str("component", "staking").Logger(),

		stakeGuard:   guard.New("stake"),
		unstakeGuard: guard.New("unstake"),
		claimGuard:   guard.New("claim reward"),
	}, nil
}

// Custody returns the address holders must approve before staking.
func (e *Engine) Custody() domain.Address {
	return e.custody
}

// Reward returns the reward accrued by amount over whole days since start:
// amount * RewardRateBps * days / BpsDenominator.
func Reward(amount *big.Int, start, now int64) *big.Int {
	days := wholeDays(start, now)
	if days == 0 || amount == nil || amount.Sign() <= 0 {
		return new(big.Int)
	}
	r := new(big.Int).Mul(amount, big.NewInt(RewardRateBps))
	r.Mul(r, big.NewInt(days))
	return r.Quo(r, big.NewInt(BpsDenominator))
}

func wholeDays(start, now int64) int64 {
	if now <= start {
		return 0
	}
	return (now - start) / DaySeconds
}

func (e *Engine) lookup(addr domain.Address) (token.Token, error) {
	if _, ok := e.ledger.Token(addr); !ok {
		return nil, fmt.Errorf("token %s: %w", addr, domain.ErrUnknownToken)
	}
	tok, err := e.tokens.Lookup(addr)
	if err != nil {
		return nil, fmt.Errorf("token ledger %s: %w", addr, err)
	}
	return tok, nil
}

func transferFailed(what string, err error) error {
	return fmt.Errorf("%s: %w: %v", what, domain.ErrTransferFailed, err)
}
