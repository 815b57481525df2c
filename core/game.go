package core

import "time"

// RoundStatus is the lifecycle state of a PIN round.
type RoundStatus string

const (
	RoundActive RoundStatus = "active"
	RoundWon    RoundStatus = "won"
	RoundLost   RoundStatus = "lost"
)

// PINLength is the number of digits in the secret PIN.
const PINLength = 4

// Round is the client-visible state of one PIN-guessing round. The
// secret PIN is not part of it; see StoredRound.
type Round struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	Attempts    int         `json:"attempts"`
	MaxAttempts int         `json:"maxAttempts"`
	Status      RoundStatus `json:"status"`
	Score       int64       `json:"score"`
	StartedAt   time.Time   `json:"startedAt"`
}

// StoredRound carries the secret PIN alongside the round through the
// round store. Rounds are persisted server-side only, so the secret
// can travel in the blob.
type StoredRound struct {
	Round
	PIN string `json:"pin"`
}

// GuessResult is the per-guess feedback: how many digits are in the
// right position and how many are present elsewhere in the PIN.
type GuessResult struct {
	Exact        int         `json:"exact"`
	Present      int         `json:"present"`
	AttemptsLeft int         `json:"attemptsLeft"`
	Status       RoundStatus `json:"status"`
	Score        int64       `json:"score,omitempty"`
	PIN          string      `json:"pin,omitempty"` // revealed only once the round is over
}

// LeaderboardEntry is one row of the score ranking.
type LeaderboardEntry struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
	Score    int64  `json:"score"`
}
