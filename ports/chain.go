package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// ScoreChain submits and reads player scores on the game contract.
// Submission is best-effort from the game's point of view: a failed
// submission never fails the round that produced the score.
type ScoreChain interface {
	// SubmitScore records the score for the wallet on-chain and
	// returns the transaction hash.
	SubmitScore(ctx context.Context, wallet string, score int64) (string, error)

	// Score reads the wallet's current on-chain score.
	Score(ctx context.Context, wallet string) (int64, error)

	// RewardBalance reads the wallet's accrued reward and converts it
	// from wei to whole token units.
	RewardBalance(ctx context.Context, wallet string) (decimal.Decimal, error)
}
