package core

import "errors"

var (
	// ErrInvalidCredential covers bad signature, wrong issuer or
	// audience, and malformed claims on an access credential.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrCredentialExpired is returned when an access or challenge
	// credential has expired.
	ErrCredentialExpired = errors.New("credential has expired")

	// ErrRecordNotFound is the store-level absent signal: the key is
	// expired, deleted, or never existed.
	ErrRecordNotFound = errors.New("record not found")

	// ErrSessionNotFound is returned when a refresh token is absent
	// from the store at validation time.
	ErrSessionNotFound = errors.New("session not found")

	// ErrBreachDetected is returned after an unknown or already
	// consumed refresh token was presented and every session for the
	// owner has been revoked in response.
	ErrBreachDetected = errors.New("refresh token reuse detected")

	// ErrIdentityNotFound is returned when a userId no longer maps to
	// an identity.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrStoreUnavailable marks a transient credential-store fault.
	// Callers must fail closed: it never means valid or invalid.
	ErrStoreUnavailable = errors.New("credential store unavailable")

	// ErrInvalidSignature is returned when a wallet signature does not
	// recover to the claimed address.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidChallenge is returned for a malformed or mismatched
	// challenge token.
	ErrInvalidChallenge = errors.New("invalid challenge")
)

var (
	// ErrRoundNotFound is returned when a guess references a round that
	// does not exist or has expired.
	ErrRoundNotFound = errors.New("round not found")

	// ErrRoundFinished is returned when a guess is submitted to a round
	// that is already won or lost.
	ErrRoundFinished = errors.New("round already finished")

	// ErrInvalidGuess is returned when a guess is not exactly four
	// decimal digits.
	ErrInvalidGuess = errors.New("guess must be four digits")
)
