// Package governance runs fixed-window, one-vote-per-address rounds on
// catalog tokens. A round passes when it collects MinVotesRequired votes.
package governance

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"meme-ledger/internal/clock"
	"meme-ledger/internal/domain"
	"meme-ledger/internal/guard"
	"meme-ledger/internal/idhash"
	"meme-ledger/internal/ledger"
)

const (
	// VotingPeriodSeconds is the length of a voting window.
	VotingPeriodSeconds = 7 * 86_400

	// MinVotesRequired is the pass threshold.
	MinVotesRequired = 10
)

// Options configures an Engine.
type Options struct {
	Ledger ledger.Ledger
	Clock  clock.Clock    // default: clock.System{}
	Self   domain.Address // ledger access gate
	Admin  domain.Address // may start rounds and end them early
	Logger zerolog.Logger
}

// Engine implements voting rounds.
type Engine struct {
	ledger    ledger.Ledger
	clock     clock.Clock
	self      domain.Address
	admin     domain.Address
	voteGuard *guard.Guard
	logger    zerolog.Logger
}

// Outcome is the result of EndVoting.
type Outcome struct {
	Token  domain.Address
	Votes  uint64
	Passed bool
}

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Ledger == nil {
		return nil, fmt.Errorf("governance: ledger is required: %w", domain.ErrInvalidInput)
	}
	if !opts.Self.Valid() || !opts.Admin.Valid() {
		return nil, fmt.Errorf("governance self and admin: %w", domain.ErrInvalidAddress)
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}

	return &Engine{
		ledger:    opts.Ledger,
		clock:     clk,
		self:      opts.Self,
		admin:     opts.Admin,
		voteGuard: guard.New("vote"),
		logger:    opts.Logger.With().Str("component", "governance").Logger(),
	}, nil
}

// StartVoting opens a round on token for VotingPeriodSeconds from now.
// Administrator only.
func (e *Engine) StartVoting(ctx context.Context, caller, token domain.Address) error {
	if caller != e.admin {
		return fmt.Errorf("%w: start voting is administrator only", domain.ErrUnauthorized)
	}

	var end int64
	err := e.ledger.Exec(ctx, func(ctx context.Context) error {
		if _, ok := e.ledger.Token(token); !ok {
			return fmt.Errorf("token %s: %w", token, domain.ErrUnknownToken)
		}
		if v, _ := e.ledger.VoteState(token); v.Active {
			return fmt.Errorf("token %s: %w", token, domain.ErrAlreadyActive)
		}

		now := clock.Unix(e.clock)
		end = now + VotingPeriodSeconds
		if err := e.ledger.SetVoting(ctx, e.self, token, true, now, end); err != nil {
			return err
		}
		if err := e.ledger.AppendVotingToken(ctx, e.self, token); err != nil {
			return err
		}
		return e.ledger.Emit(ctx, &domain.Event{
			Kind:      domain.EventVotingStarted,
			Token:     token,
			Actor:     caller,
			Timestamp: now,
		})
	})
	if err != nil {
		return err
	}

	e.logger.Debug().Str("token", token.String()).Int64("end", end).Msg("voting started")
	return nil
}

// Vote casts the caller's single vote on token and returns the new count.
// A voter who voted on token in any earlier round cannot vote again.
func (e *Engine) Vote(ctx context.Context, caller, token domain.Address) (uint64, error) {
	if !caller.Valid() {
		return 0, fmt.Errorf("voter: %w", domain.ErrInvalidAddress)
	}

	var votes uint64
	err := e.ledger.Exec(ctx, func(ctx context.Context) error {
		release, err := e.voteGuard.Enter()
		if err != nil {
			return err
		}
		defer release()

		if _, ok := e.ledger.Token(token); !ok {
			return fmt.Errorf("token %s: %w", token, domain.ErrUnknownToken)
		}
		v, _ := e.ledger.VoteState(token)
		if !v.Active {
			return fmt.Errorf("token %s: %w", token, domain.ErrNotActive)
		}
		now := clock.Unix(e.clock)
		if !v.InWindow(now) {
			return fmt.Errorf("token %s at %d outside [%d, %d]: %w", token, now, v.Start, v.End, domain.ErrWindowClosed)
		}

		key := idhash.ComputeReceiptKey(caller, token)
		if e.ledger.HasVoted(key) {
			return fmt.Errorf("%s on %s: %w", caller, token, domain.ErrAlreadyVoted)
		}
		if err := e.ledger.WriteReceipt(ctx, e.self, key); err != nil {
			return err
		}
		if votes, err = e.ledger.IncrementVotes(ctx, e.self, token); err != nil {
			return err
		}
		return e.ledger.Emit(ctx, &domain.Event{
			Kind:      domain.EventVoted,
			Token:     token,
			Actor:     caller,
			Votes:     votes,
			Timestamp: now,
		})
	})
	if err != nil {
		return 0, err
	}
	return votes, nil
}

// EndVoting closes the round on token and reports whether it passed.
// The administrator may end a round at any time; anyone else only after
// the window has closed.
func (e *Engine) EndVoting(ctx context.Context, caller, token domain.Address) (Outcome, error) {
	var out Outcome
	err := e.ledger.Exec(ctx, func(ctx context.Context) error {
		if _, ok := e.ledger.Token(token); !ok {
			return fmt.Errorf("token %s: %w", token, domain.ErrUnknownToken)
		}
		v, _ := e.ledger.VoteState(token)
		if !v.Active {
			return fmt.Errorf("token %s: %w", token, domain.ErrNotActive)
		}
		now := clock.Unix(e.clock)
		if caller != e.admin && now <= v.End {
			return fmt.Errorf("token %s until %d: %w", token, v.End, domain.ErrWindowOpen)
		}

		out = Outcome{Token: token, Votes: v.Votes, Passed: v.Votes >= MinVotesRequired}
		if err := e.ledger.SetVoting(ctx, e.self, token, false, 0, 0); err != nil {
			return err
		}

		var remaining []domain.Address
		for _, t := range e.ledger.VotingTokens() {
			if s, _ := e.ledger.VoteState(t); s.Active {
				remaining = append(remaining, t)
			}
		}
		if err := e.ledger.ReplaceVotingTokens(ctx, e.self, remaining); err != nil {
			return err
		}

		return e.ledger.Emit(ctx, &domain.Event{
			Kind:      domain.EventVotingEnded,
			Token:     token,
			Actor:     caller,
			Votes:     out.Votes,
			Passed:    out.Passed,
			Timestamp: now,
		})
	})
	if err != nil {
		return Outcome{}, err
	}

	e.logger.Debug().
		Str("token", token.String()).
		Uint64("votes", out.Votes).
		Bool("passed", out.Passed).
		Msg("voting ended")
	return out, nil
}

// ActiveVotingTokens returns the voting token set filtered by active flag.
func (e *Engine) ActiveVotingTokens(ctx context.Context) ([]domain.Address, error) {
	out := []domain.Address{}
	err := e.ledger.View(ctx, func(ctx context.Context) error {
		for _, t := range e.ledger.VotingTokens() {
			if v, _ := e.ledger.VoteState(t); v.Active {
				out = append(out, t)
			}
		}
		return nil
	})
	return out, err
}

// Status returns the vote state of token. A token that never had a round
// reports an inactive state with zero votes.
func (e *Engine) Status(ctx context.Context, token domain.Address) (domain.VoteState, error) {
	var v domain.VoteState
	err := e.ledger.View(ctx, func(ctx context.Context) error {
		if _, ok := e.ledger.Token(token); !ok {
			return fmt.Errorf("token %s: %w", token, domain.ErrUnknownToken)
		}
		v, _ = e.ledger.VoteState(token)
		return nil
	})
	return v, err
}

// HasVoted reports whether voter ever voted on token.
func (e *Engine) HasVoted(ctx context.Context, voter, token domain.Address) (bool, error) {
	var voted bool
	err := e.ledger.View(ctx, func(ctx context.Context) error {
		voted = e.ledger.HasVoted(idhash.ComputeReceiptKey(voter, token))
		return nil
	})
	return voted, err
}
