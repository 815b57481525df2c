package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/midnight-labs/pincade/core"
	"github.com/midnight-labs/pincade/ports"
)

const (
	Issuer            = "pincade"
	AudienceChallenge = "pincade:challenge"
	AudienceAccess    = "pincade:access"
)

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey}
}

// ChallengeToToken converts a Challenge to a signed JWT
func (j *JWTTokenizer) ChallengeToToken(challenge *core.Challenge) (string, error) {
	claims := ChallengeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   challenge.WalletAddress,
			ID:        challenge.ID,
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{AudienceChallenge},
			ExpiresAt: jwt.NewNumericDate(challenge.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(challenge.IssuedAt),
		},
		Nonce: challenge.Nonce,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign challenge token: %w", err)
	}

	return signedToken, nil
}

// TokenToChallenge verifies a challenge JWT and converts it back to a
// Challenge
func (j *JWTTokenizer) TokenToChallenge(tokenStr string) (*core.Challenge, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &ChallengeClaims{}, j.keyFunc,
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(AudienceChallenge),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrCredentialExpired
		}
		return nil, core.ErrInvalidChallenge
	}

	claims, ok := token.Claims.(*ChallengeClaims)
	if !ok || !token.Valid {
		return nil, core.ErrInvalidChallenge
	}

	return &core.Challenge{
		ID:            claims.ID,
		WalletAddress: claims.Subject,
		Nonce:         claims.Nonce,
		IssuedAt:      claims.IssuedAt.Time,
		ExpiresAt:     claims.ExpiresAt.Time,
	}, nil
}

// SessionToAccessToken signs an access credential asserting the
// session's identity
func (j *JWTTokenizer) SessionToAccessToken(session *core.Session) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Identity.ID,
			ID:        session.TokenID,
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{AudienceAccess},
			ExpiresAt: jwt.NewNumericDate(session.AccessExpiry),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
		},
		Username: session.Identity.Username,
		Wallet:   session.Identity.WalletAddress,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signedToken, nil
}

// AccessTokenToSession is the authoritative verification: signature,
// issuer, audience and expiry are all checked. Only its result may
// gate access.
func (j *JWTTokenizer) AccessTokenToSession(tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, j.keyFunc,
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(AudienceAccess),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrCredentialExpired
		}
		return nil, core.ErrInvalidCredential
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, core.ErrInvalidCredential
	}

	return sessionFromClaims(claims), nil
}

// ParseUnverified decodes access claims without checking the
// signature. It exists for early-exit routing only; its result must
// never gate access.
func (j *JWTTokenizer) ParseUnverified(tokenStr string) (*core.Session, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenStr, &AccessClaims{})
	if err != nil {
		return nil, core.ErrInvalidCredential
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok {
		return nil, core.ErrInvalidCredential
	}

	return sessionFromClaims(claims), nil
}

func sessionFromClaims(claims *AccessClaims) *core.Session {
	session := &core.Session{
		Identity: core.Identity{
			ID:            claims.Subject,
			Username:      claims.Username,
			WalletAddress: claims.Wallet,
		},
		TokenID: claims.ID,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.AccessExpiry = claims.ExpiresAt.Time
	}
	return session
}

// keyFunc validates the signing method and supplies the verify key
func (j *JWTTokenizer) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return &j.signKey.PublicKey, nil
}
