package core

import "time"

// Identity is a stable principal created on first login for a wallet.
// WalletAddress is stored case-normalized (lowercase hex) and is the
// natural unique key.
type Identity struct {
	ID            string // Unique user identifier
	Username      string // Display name chosen at first login
	WalletAddress string // Lowercase 0x-prefixed hex address
}

// Challenge represents an authentication challenge
type Challenge struct {
	ID            string    // Unique identifier for the challenge
	WalletAddress string    // Address the challenge was issued for
	Nonce         string    // Random nonce to be signed by the wallet
	IssuedAt      time.Time // When the challenge was created
	ExpiresAt     time.Time // When the challenge expires
}

// Session represents the identity and timing claims carried by an
// access credential. It is stateless: the server keeps no record of it
// and validity is determined by signature and expiry alone.
type Session struct {
	Identity     Identity
	TokenID      string    // Correlation id shared with the refresh record
	IssuedAt     time.Time // When the access credential was issued
	AccessExpiry time.Time // When the access credential expires
}

// RefreshRecord is the server-held side of a session. It is stored
// keyed by (owner, token value); presence of the key is the sole
// validity signal.
type RefreshRecord struct {
	UserID    string    `json:"userId"`
	TokenID   string    `json:"tokenId"`
	CreatedAt time.Time `json:"createdAt"`
}

// TokenPair is what a successful login or refresh hands back to the
// client: a signed access credential and an opaque refresh token value.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
