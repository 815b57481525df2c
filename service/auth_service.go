package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/midnight-labs/pincade/core"
	"github.com/midnight-labs/pincade/internal/eth"
	"github.com/midnight-labs/pincade/ports"
)

const (
	// refreshKeyPrefix is the credential-store key space for refresh
	// records: refresh_token:{userId}:{refreshTokenValue}.
	refreshKeyPrefix = "refresh_token:"

	// refreshValueBytes is the entropy of a refresh token value.
	refreshValueBytes = 32

	defaultChallengeTTL = 5 * time.Minute
	defaultAccessTTL    = 15 * time.Minute
	defaultRefreshTTL   = 7 * 24 * time.Hour

	// storeTimeout bounds every credential-store round trip. A slower
	// store reads as a fault and the operation fails closed.
	storeTimeout = 3 * time.Second
)

// AuthService owns the session lifecycle: it issues, validates,
// rotates and revokes access/refresh pairs and enforces the
// reuse-detection invariant.
type AuthService struct {
	tokenizer ports.Tokenizer
	store     ports.Store
	users     ports.UserRepository
	eventPub  ports.EventPublisher
	log       *slog.Logger

	challengeTTL time.Duration
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	store ports.Store,
	users ports.UserRepository,
	eventPub ports.EventPublisher,
	log *slog.Logger,
) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{
		tokenizer:    tokenizer,
		store:        store,
		users:        users,
		eventPub:     eventPub,
		log:          log,
		challengeTTL: defaultChallengeTTL,
		accessTTL:    defaultAccessTTL,
		refreshTTL:   defaultRefreshTTL,
	}
}

func refreshKey(userID, value string) string {
	return refreshKeyPrefix + userID + ":" + value
}

func refreshPrefix(userID string) string {
	return refreshKeyPrefix + userID + ":"
}

// CreateChallenge generates a new authentication challenge for the
// wallet
func (s *AuthService) CreateChallenge(address string) (string, error) {
	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := time.Now()
	challenge := &core.Challenge{
		ID:            uuid.New().String(),
		WalletAddress: eth.NormalizeAddress(address),
		Nonce:         hex.EncodeToString(nonceBytes),
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.challengeTTL),
	}

	token, err := s.tokenizer.ChallengeToToken(challenge)
	if err != nil {
		return "", fmt.Errorf("failed to create challenge token: %w", err)
	}

	return token, nil
}

// Login verifies the signed challenge, resolves or creates the wallet's
// identity, and issues a new session.
func (s *AuthService) Login(ctx context.Context, challengeToken, signature, address, username string) (*core.TokenPair, *core.Identity, error) {
	challenge, err := s.tokenizer.TokenToChallenge(challengeToken)
	if err != nil {
		return nil, nil, err
	}

	wallet := eth.NormalizeAddress(address)
	if challenge.WalletAddress != wallet {
		return nil, nil, core.ErrInvalidChallenge
	}

	verified, err := eth.VerifyPersonalSignature([]byte(challenge.Nonce), signature, common.HexToAddress(wallet))
	if err != nil || !verified {
		return nil, nil, core.ErrInvalidSignature
	}

	identity, err := s.users.GetByWallet(ctx, wallet)
	if errors.Is(err, core.ErrIdentityNotFound) {
		identity = &core.Identity{
			ID:            uuid.New().String(),
			Username:      username,
			WalletAddress: wallet,
		}
		if err := s.users.Create(ctx, identity); err != nil {
			return nil, nil, fmt.Errorf("failed to create identity: %w", err)
		}
		s.log.Info("identity created", "userId", identity.ID, "wallet", wallet)
	} else if err != nil {
		return nil, nil, err
	}

	pair, err := s.Issue(ctx, identity)
	if err != nil {
		return nil, nil, err
	}

	return pair, identity, nil
}

// Issue creates a new access/refresh pair for the identity and
// persists the refresh record with its full TTL.
func (s *AuthService) Issue(ctx context.Context, identity *core.Identity) (*core.TokenPair, error) {
	valueBytes := make([]byte, refreshValueBytes)
	if _, err := rand.Read(valueBytes); err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	refreshValue := hex.EncodeToString(valueBytes)

	now := time.Now()
	session := &core.Session{
		Identity:     *identity,
		TokenID:      uuid.New().String(),
		IssuedAt:     now,
		AccessExpiry: now.Add(s.accessTTL),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	record := core.RefreshRecord{
		UserID:    identity.ID,
		TokenID:   session.TokenID,
		CreatedAt: now,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal refresh record: %w", err)
	}

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.store.Put(storeCtx, refreshKey(identity.ID, refreshValue), string(payload), s.refreshTTL); err != nil {
		return nil, err
	}

	return &core.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshValue,
	}, nil
}

// ValidateRefresh looks up the refresh record for the pair. Absence is
// reported as core.ErrSessionNotFound, never invented from a store
// fault.
func (s *AuthService) ValidateRefresh(ctx context.Context, userID, refreshValue string) (*core.RefreshRecord, error) {
	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	payload, err := s.store.Get(storeCtx, refreshKey(userID, refreshValue))
	if err != nil {
		if errors.Is(err, core.ErrRecordNotFound) {
			return nil, core.ErrSessionNotFound
		}
		return nil, err
	}

	var record core.RefreshRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("failed to decode refresh record: %w", err)
	}

	return &record, nil
}

// Rotate consumes the old refresh token and issues a fresh pair. The
// caller must have just validated the old pair; the delete is
// idempotent so a lost race on the same stale token is a no-op, not an
// error.
func (s *AuthService) Rotate(ctx context.Context, userID, oldRefreshValue string, identity *core.Identity) (*core.TokenPair, error) {
	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if _, err := s.store.Delete(storeCtx, refreshKey(userID, oldRefreshValue)); err != nil {
		return nil, err
	}

	return s.Issue(ctx, identity)
}

// Refresh runs the rotation plus breach-detection protocol.
//
// An absent record is treated as a possible token-theft indicator:
// every live session for the user is destroyed and the caller receives
// core.ErrBreachDetected. A genuinely expired token takes the same
// path; the over-reaction trades convenience for safety.
func (s *AuthService) Refresh(ctx context.Context, userID, refreshValue string) (*core.TokenPair, *core.Identity, error) {
	_, err := s.ValidateRefresh(ctx, userID, refreshValue)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			revoked, revokeErr := s.RevokeAll(ctx, userID)
			if revokeErr != nil {
				s.log.Error("breach revocation incomplete", "userId", userID, "error", revokeErr)
			}
			s.log.Warn("refresh token reuse detected", "userId", userID, "revoked", revoked)

			if s.eventPub != nil {
				if pubErr := s.eventPub.PublishBreach(ctx, userID, revoked); pubErr != nil {
					s.log.Error("failed to publish breach event", "userId", userID, "error", pubErr)
				}
			}

			return nil, nil, core.ErrBreachDetected
		}
		// Store fault: cannot confirm session state, fail closed.
		return nil, nil, err
	}

	identity, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.Rotate(ctx, userID, refreshValue, identity)
	if err != nil {
		return nil, nil, err
	}

	return pair, identity, nil
}

// RevokeOne deletes a single refresh record. Idempotent.
func (s *AuthService) RevokeOne(ctx context.Context, userID, refreshValue string) error {
	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	_, err := s.store.Delete(storeCtx, refreshKey(userID, refreshValue))
	return err
}

// RevokeAll deletes every refresh record for the user and reports how
// many sessions were actually removed.
func (s *AuthService) RevokeAll(ctx context.Context, userID string) (int, error) {
	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	return s.store.DeleteAllMatching(storeCtx, refreshPrefix(userID))
}

// Logout revokes one session and notifies other instances
func (s *AuthService) Logout(ctx context.Context, userID, refreshValue string) error {
	// Best-effort read of the correlation id for the event; an absent
	// record still logs out cleanly.
	var tokenID string
	if record, err := s.ValidateRefresh(ctx, userID, refreshValue); err == nil {
		tokenID = record.TokenID
	}

	if err := s.RevokeOne(ctx, userID, refreshValue); err != nil {
		return err
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishLogout(ctx, userID, tokenID); err != nil {
			// The session is already revoked, which is the critical
			// part; a lost event must not fail the logout.
			s.log.Error("failed to publish logout event", "userId", userID, "error", err)
		}
	}

	return nil
}

// LogoutAll revokes every session for the user and returns the count
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int, error) {
	revoked, err := s.RevokeAll(ctx, userID)
	if err != nil {
		return revoked, err
	}

	if s.eventPub != nil {
		if pubErr := s.eventPub.PublishLogout(ctx, userID, ""); pubErr != nil {
			s.log.Error("failed to publish logout event", "userId", userID, "error", pubErr)
		}
	}

	return revoked, nil
}

// VerifyAccess checks an access credential's signature, scoping and
// expiry. It is a pure function of the credential; no store access.
func (s *AuthService) VerifyAccess(accessToken string) (*core.Session, error) {
	return s.tokenizer.AccessTokenToSession(accessToken)
}

// AccessTTL reports the lifetime of issued access credentials so the
// transport layer can advertise the same expiry it signs.
func (s *AuthService) AccessTTL() time.Duration {
	return s.accessTTL
}
