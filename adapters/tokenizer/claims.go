package tokenizer

import "github.com/golang-jwt/jwt/v5"

// ChallengeClaims combines standard claims with challenge-specific ones
type ChallengeClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}

// AccessClaims combines standard claims with the identity fields the
// access credential asserts
type AccessClaims struct {
	jwt.RegisteredClaims
	Username string `json:"name"`
	Wallet   string `json:"wallet"`
}
