package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/midnight-labs/pincade/core"
	"github.com/midnight-labs/pincade/ports"
)

const (
	roundKeyPrefix = "round:"

	defaultMaxAttempts = 6
	defaultRoundTTL    = time.Hour

	// pointsPerAttemptLeft sets the win score: unused attempts,
	// including the winning one, are worth 100 points each.
	pointsPerAttemptLeft = 100
)

// GameService runs PIN rounds and settles their scores into the
// leaderboard and the game contract.
type GameService struct {
	store ports.Store
	board ports.Leaderboard
	chain ports.ScoreChain
	users ports.UserRepository
	log   *slog.Logger

	maxAttempts int
	roundTTL    time.Duration
}

// NewGameService creates a new game service. chain may be nil when no
// contract is configured; scores then stay off-chain.
func NewGameService(
	store ports.Store,
	board ports.Leaderboard,
	chain ports.ScoreChain,
	users ports.UserRepository,
	log *slog.Logger,
) *GameService {
	if log == nil {
		log = slog.Default()
	}
	return &GameService{
		store:       store,
		board:       board,
		chain:       chain,
		users:       users,
		log:         log,
		maxAttempts: defaultMaxAttempts,
		roundTTL:    defaultRoundTTL,
	}
}

func roundKey(userID, roundID string) string {
	return roundKeyPrefix + userID + ":" + roundID
}

// StartRound draws a fresh secret PIN and opens a round for the user
func (g *GameService) StartRound(ctx context.Context, userID string) (*core.Round, error) {
	pin, err := randomPIN()
	if err != nil {
		return nil, fmt.Errorf("failed to draw pin: %w", err)
	}

	stored := core.StoredRound{
		Round: core.Round{
			ID:          uuid.New().String(),
			UserID:      userID,
			MaxAttempts: g.maxAttempts,
			Status:      core.RoundActive,
			StartedAt:   time.Now(),
		},
		PIN: pin,
	}

	if err := g.saveRound(ctx, &stored); err != nil {
		return nil, err
	}

	round := stored.Round
	return &round, nil
}

// Guess scores one guess against the round's PIN. Winning settles the
// round: leaderboard credit and a best-effort on-chain submission.
func (g *GameService) Guess(ctx context.Context, userID, roundID, guess string) (*core.GuessResult, error) {
	if !validPIN(guess) {
		return nil, core.ErrInvalidGuess
	}

	stored, err := g.loadRound(ctx, userID, roundID)
	if err != nil {
		return nil, err
	}
	if stored.Status != core.RoundActive {
		return nil, core.ErrRoundFinished
	}

	stored.Attempts++
	exact, present := matchDigits(stored.PIN, guess)

	result := &core.GuessResult{
		Exact:        exact,
		Present:      present,
		AttemptsLeft: stored.MaxAttempts - stored.Attempts,
		Status:       core.RoundActive,
	}

	switch {
	case exact == core.PINLength:
		stored.Status = core.RoundWon
		stored.Score = int64(stored.MaxAttempts-stored.Attempts+1) * pointsPerAttemptLeft
		result.Status = core.RoundWon
		result.Score = stored.Score
		result.PIN = stored.PIN
	case stored.Attempts >= stored.MaxAttempts:
		stored.Status = core.RoundLost
		result.Status = core.RoundLost
		result.PIN = stored.PIN
	}

	// The finished round must be persisted before any settlement: if the
	// save fails and the client retries the winning guess, an
	// already-settled win would be credited twice.
	if err := g.saveRound(ctx, stored); err != nil {
		return nil, err
	}

	if stored.Status == core.RoundWon {
		g.settleWin(ctx, stored)
	}

	return result, nil
}

// Round returns the client-visible state of a round
func (g *GameService) Round(ctx context.Context, userID, roundID string) (*core.Round, error) {
	stored, err := g.loadRound(ctx, userID, roundID)
	if err != nil {
		return nil, err
	}
	round := stored.Round
	return &round, nil
}

// Leaderboard returns the top entries with usernames resolved
func (g *GameService) Leaderboard(ctx context.Context, n int) ([]core.LeaderboardEntry, error) {
	entries, err := g.board.Top(ctx, n)
	if err != nil {
		return nil, err
	}

	for i := range entries {
		identity, err := g.users.GetByID(ctx, entries[i].UserID)
		if err != nil {
			// Rankings outlive identities in tests and migrations;
			// leave the username blank rather than dropping the row.
			continue
		}
		entries[i].Username = identity.Username
	}

	return entries, nil
}

// ChainScore reads the wallet's on-chain score
func (g *GameService) ChainScore(ctx context.Context, wallet string) (int64, error) {
	if g.chain == nil {
		return 0, nil
	}
	return g.chain.Score(ctx, wallet)
}

// RewardBalance reads the wallet's accrued reward in whole token units
func (g *GameService) RewardBalance(ctx context.Context, wallet string) (decimal.Decimal, error) {
	if g.chain == nil {
		return decimal.Zero, nil
	}
	return g.chain.RewardBalance(ctx, wallet)
}

// PlayerRank returns the player's one-based leaderboard position and
// total score. Players who have never scored get rank 0.
func (g *GameService) PlayerRank(ctx context.Context, userID string) (int64, int64, error) {
	rank, total, err := g.board.Rank(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrRecordNotFound) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	return rank + 1, total, nil
}

// settleWin credits the leaderboard and submits the score on-chain.
// Chain submission is best-effort: the round result stands either way.
func (g *GameService) settleWin(ctx context.Context, stored *core.StoredRound) {
	total, err := g.board.AddScore(ctx, stored.UserID, stored.Score)
	if err != nil {
		g.log.Error("failed to credit leaderboard", "userId", stored.UserID, "error", err)
	}

	if g.chain == nil {
		return
	}

	identity, err := g.users.GetByID(ctx, stored.UserID)
	if err != nil {
		g.log.Error("failed to resolve wallet for chain submit", "userId", stored.UserID, "error", err)
		return
	}

	txHash, err := g.chain.SubmitScore(ctx, identity.WalletAddress, total)
	if err != nil {
		g.log.Error("failed to submit score on-chain", "userId", stored.UserID, "error", err)
		return
	}

	g.log.Info("score submitted on-chain", "userId", stored.UserID, "tx", txHash, "score", total)
}

func (g *GameService) saveRound(ctx context.Context, stored *core.StoredRound) error {
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal round: %w", err)
	}

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return g.store.Put(storeCtx, roundKey(stored.UserID, stored.ID), string(payload), g.roundTTL)
}

func (g *GameService) loadRound(ctx context.Context, userID, roundID string) (*core.StoredRound, error) {
	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	payload, err := g.store.Get(storeCtx, roundKey(userID, roundID))
	if err != nil {
		if errors.Is(err, core.ErrRecordNotFound) {
			return nil, core.ErrRoundNotFound
		}
		return nil, err
	}

	var stored core.StoredRound
	if err := json.Unmarshal([]byte(payload), &stored); err != nil {
		return nil, fmt.Errorf("failed to decode round: %w", err)
	}

	return &stored, nil
}

func randomPIN() (string, error) {
	digits := make([]byte, core.PINLength)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

func validPIN(guess string) bool {
	if len(guess) != core.PINLength {
		return false
	}
	for _, c := range guess {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// matchDigits scores a guess: exact counts digits in the right
// position, present counts right digits in the wrong position, each
// secret digit matched at most once.
func matchDigits(pin, guess string) (exact, present int) {
	var pinLeft, guessLeft [10]int

	for i := 0; i < core.PINLength; i++ {
		if pin[i] == guess[i] {
			exact++
			continue
		}
		pinLeft[pin[i]-'0']++
		guessLeft[guess[i]-'0']++
	}

	for d := 0; d < 10; d++ {
		if pinLeft[d] < guessLeft[d] {
			present += pinLeft[d]
		} else {
			present += guessLeft[d]
		}
	}

	return exact, present
}
