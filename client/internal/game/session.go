package game

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rohit-710/wallet-bounce/client/internal/api"
	"github.com/rohit-710/wallet-bounce/client/internal/wallet"
	"github.com/rohit-710/wallet-bounce/shared/leaderboard"
	"github.com/rohit-710/wallet-bounce/shared/protocol"
)

var (
	ErrClaimInProgress = errors.New("a reward claim is already in progress")
	ErrNothingToClaim  = errors.New("no unclaimed high score for this wallet")
	ErrAlreadyClaimed  = errors.New("reward already claimed for this score")
)

// RewardAPI is the part of the reward server a session talks to.
type RewardAPI interface {
	ClaimReward(ctx context.Context, req protocol.ClaimRequest) (protocol.ClaimResult, error)
	CheckTransaction(ctx context.Context, signature string) (protocol.TxStatusResult, error)
}

// Session ties one wallet to the local leaderboard and the reward server.
type Session struct {
	store    *leaderboard.Store
	api      RewardAPI
	wallet   wallet.Wallet
	claiming atomic.Bool
	log      zerolog.Logger
}

func NewSession(store *leaderboard.Store, rewards RewardAPI, w wallet.Wallet, logger zerolog.Logger) *Session {
	return &Session{store: store, api: rewards, wallet: w, log: logger}
}

func (s *Session) Address() string { return s.wallet.Address() }

// OnGameOver records a finished game. It reports whether the score is a new
// personal best.
func (s *Session) OnGameOver(score uint64) (bool, error) {
	var best bool
	err := s.store.Update(func(b *leaderboard.Board) error {
		best = b.RecordScore(s.wallet.Address(), score)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to save score: %w", err)
	}
	s.log.Info().Uint64("score", score).Bool("newBest", best).Msg("game over")
	return best, nil
}

func (s *Session) CanClaim() bool {
	return s.store.Load().CanClaim(s.wallet.Address())
}

func (s *Session) Entry() (leaderboard.Entry, bool) {
	return s.store.Load().Entry(s.wallet.Address())
}

func (s *Session) Leaderboard(n int) []leaderboard.Entry {
	return s.store.Load().Top(n)
}

func (s *Session) Claiming() bool { return s.claiming.Load() }

// Claim asks the server to pay the reward for the current best score. Only
// one claim runs at a time; a second call while one is in flight fails with
// ErrClaimInProgress. The entry is marked claimed once the server accepts
// the claim, or when the server says this score was already paid.
func (s *Session) Claim(ctx context.Context) (protocol.ClaimResult, error) {
	var none protocol.ClaimResult
	if !s.claiming.CompareAndSwap(false, true) {
		return none, ErrClaimInProgress
	}
	defer s.claiming.Store(false)

	addr := s.wallet.Address()
	board := s.store.Load()
	entry, ok := board.Entry(addr)
	if !ok || !board.CanClaim(addr) {
		return none, ErrNothingToClaim
	}

	res, err := s.api.ClaimReward(ctx, protocol.ClaimRequest{PlayerAddress: addr, Score: entry.HighScore})
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict && apiErr.Message == protocol.MsgAlreadyClaimed {
			if merr := s.markClaimed(entry.HighScore); merr != nil {
				return none, merr
			}
			return none, ErrAlreadyClaimed
		}
		return none, fmt.Errorf("claim failed: %w", err)
	}
	if !res.Success || res.Signature == "" {
		return none, fmt.Errorf("claim failed: %s", res.Error)
	}

	if err := s.markClaimed(entry.HighScore); err != nil {
		return res, err
	}
	s.log.Info().Str("signature", res.Signature).Uint64("score", entry.HighScore).Msg("reward claimed")
	return res, nil
}

// markClaimed flags the entry unless a newer best replaced the claimed score
// in the meantime.
func (s *Session) markClaimed(score uint64) error {
	addr := s.wallet.Address()
	err := s.store.Update(func(b *leaderboard.Board) error {
		if e, ok := b.Entry(addr); ok && e.HighScore == score {
			b.MarkClaimed(addr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save claim: %w", err)
	}
	return nil
}

func (s *Session) WaitConfirmed(ctx context.Context, signature string, interval time.Duration, onUpdate func(protocol.TxStatusResult)) (protocol.TxStatusResult, error) {
	return WaitConfirmed(ctx, s.api, signature, interval, onUpdate, s.log)
}

// WaitConfirmed polls the server until the transaction is confirmed or
// failed, or ctx ends. Lookup errors are logged and polling continues.
func WaitConfirmed(ctx context.Context, rewards RewardAPI, signature string, interval time.Duration, onUpdate func(protocol.TxStatusResult), logger zerolog.Logger) (protocol.TxStatusResult, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last protocol.TxStatusResult
	for {
		st, err := rewards.CheckTransaction(ctx, signature)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			logger.Warn().Err(err).Str("signature", signature).Msg("status check failed")
		default:
			last = st
			if onUpdate != nil {
				onUpdate(st)
			}
			if st.IsConfirmed || st.Failed {
				return st, nil
			}
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}
