package ports

import (
	"context"

	"github.com/midnight-labs/pincade/core"
)

// Leaderboard ranks players by accumulated score.
type Leaderboard interface {
	// AddScore increments the player's total and returns it.
	AddScore(ctx context.Context, userID string, points int64) (int64, error)

	// Top returns the highest-ranked entries, best first.
	Top(ctx context.Context, n int) ([]core.LeaderboardEntry, error)

	// Rank returns the player's zero-based rank and total score, or
	// core.ErrRecordNotFound if the player has no score yet.
	Rank(ctx context.Context, userID string) (int64, int64, error)
}
