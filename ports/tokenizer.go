package ports

import "github.com/midnight-labs/pincade/core"

// Tokenizer converts between domain objects and signed tokens
type Tokenizer interface {
	// Challenge token operations
	ChallengeToToken(challenge *core.Challenge) (string, error)
	TokenToChallenge(token string) (*core.Challenge, error)

	// Access credential operations. SessionToAccessToken signs;
	// AccessTokenToSession is the authoritative verification (signature,
	// issuer, audience, expiry) and the only result that may gate access.
	SessionToAccessToken(session *core.Session) (string, error)
	AccessTokenToSession(token string) (*core.Session, error)

	// ParseUnverified decodes claims without any signature check. It is
	// a latency optimization for early-exit routing and must never be
	// trusted.
	ParseUnverified(token string) (*core.Session, error)
}
