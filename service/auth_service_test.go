package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midnight-labs/pincade/adapters/store"
	"github.com/midnight-labs/pincade/adapters/tokenizer"
	"github.com/midnight-labs/pincade/adapters/users"
	"github.com/midnight-labs/pincade/core"
	"github.com/midnight-labs/pincade/internal/eth"
	"github.com/midnight-labs/pincade/ports"
)

// fakePublisher records session events in-process
type fakePublisher struct {
	mu       sync.Mutex
	logouts  []string
	breaches []string
}

func (f *fakePublisher) PublishLogout(ctx context.Context, userID, tokenID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts = append(f.logouts, userID)
	return nil
}

func (f *fakePublisher) PublishBreach(ctx context.Context, userID string, revoked int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.breaches = append(f.breaches, userID)
	return nil
}

// faultyStore simulates an unreachable credential store
type faultyStore struct{}

func (faultyStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return fmt.Errorf("%w: connection refused", core.ErrStoreUnavailable)
}
func (faultyStore) Get(ctx context.Context, key string) (string, error) {
	return "", fmt.Errorf("%w: connection refused", core.ErrStoreUnavailable)
}
func (faultyStore) Delete(ctx context.Context, key string) (bool, error) {
	return false, fmt.Errorf("%w: connection refused", core.ErrStoreUnavailable)
}
func (faultyStore) DeleteAllMatching(ctx context.Context, prefix string) (int, error) {
	return 0, fmt.Errorf("%w: connection refused", core.ErrStoreUnavailable)
}
func (faultyStore) Ping(ctx context.Context) error {
	return fmt.Errorf("%w: connection refused", core.ErrStoreUnavailable)
}

type authFixture struct {
	svc    *AuthService
	store  *store.MemoryStore
	users  *users.MemoryRepository
	events *fakePublisher
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	memStore := store.NewMemoryStore()
	memUsers := users.NewMemoryRepository()
	events := &fakePublisher{}

	svc := NewAuthService(tokenizer.NewJWTTokenizer(signKey), memStore, memUsers, events, nil)

	return &authFixture{svc: svc, store: memStore, users: memUsers, events: events}
}

func (f *authFixture) newIdentity(t *testing.T, username string) *core.Identity {
	t.Helper()

	identity := &core.Identity{
		ID:            uuid.New().String(),
		Username:      username,
		WalletAddress: "0x" + uuid.New().String()[:8],
	}
	require.NoError(t, f.users.Create(context.Background(), identity))
	return identity
}

func TestRotationConsumesExactlyOneToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := f.newIdentity(t, "alice")

	pair, err := f.svc.Issue(ctx, identity)
	require.NoError(t, err)

	newPair, _, err := f.svc.Refresh(ctx, identity.ID, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)

	_, err = f.svc.ValidateRefresh(ctx, identity.ID, pair.RefreshToken)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	record, err := f.svc.ValidateRefresh(ctx, identity.ID, newPair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, identity.ID, record.UserID)
}

func TestReuseTriggersFullRevocation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := f.newIdentity(t, "alice")

	pair1, err := f.svc.Issue(ctx, identity)
	require.NoError(t, err)
	pair2, err := f.svc.Issue(ctx, identity)
	require.NoError(t, err)

	// A never-issued value must take the breach path and destroy every
	// live session for the user.
	_, _, err = f.svc.Refresh(ctx, identity.ID, "deadbeef")
	assert.ErrorIs(t, err, core.ErrBreachDetected)

	_, err = f.svc.ValidateRefresh(ctx, identity.ID, pair1.RefreshToken)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	_, err = f.svc.ValidateRefresh(ctx, identity.ID, pair2.RefreshToken)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	assert.Equal(t, []string{identity.ID}, f.events.breaches)
}

func TestSessionsAreIndependent(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := f.newIdentity(t, "alice")

	device1, err := f.svc.Issue(ctx, identity)
	require.NoError(t, err)
	device2, err := f.svc.Issue(ctx, identity)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, identity.ID, device1.RefreshToken))

	_, err = f.svc.ValidateRefresh(ctx, identity.ID, device1.RefreshToken)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	_, err = f.svc.ValidateRefresh(ctx, identity.ID, device2.RefreshToken)
	assert.NoError(t, err)
}

func TestLogoutAllIsExhaustive(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := f.newIdentity(t, "alice")
	other := f.newIdentity(t, "bob")

	const n = 5
	pairs := make([]*core.TokenPair, 0, n)
	for i := 0; i < n; i++ {
		pair, err := f.svc.Issue(ctx, identity)
		require.NoError(t, err)
		pairs = append(pairs, pair)
	}
	otherPair, err := f.svc.Issue(ctx, other)
	require.NoError(t, err)

	count, err := f.svc.LogoutAll(ctx, identity.ID)
	require.NoError(t, err)
	assert.Equal(t, n, count)

	for _, pair := range pairs {
		_, err := f.svc.ValidateRefresh(ctx, identity.ID, pair.RefreshToken)
		assert.ErrorIs(t, err, core.ErrSessionNotFound)
	}

	// Another user's session is untouched.
	_, err = f.svc.ValidateRefresh(ctx, other.ID, otherPair.RefreshToken)
	assert.NoError(t, err)
}

func TestExpiredAccessCredentialRejected(t *testing.T) {
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tk := tokenizer.NewJWTTokenizer(signKey)

	svc := NewAuthService(tk, store.NewMemoryStore(), users.NewMemoryRepository(), nil, nil)

	expired := &core.Session{
		Identity:     core.Identity{ID: "u1", Username: "alice", WalletAddress: "0xabc"},
		TokenID:      "t1",
		IssuedAt:     time.Now().Add(-time.Hour),
		AccessExpiry: time.Now().Add(-45 * time.Minute),
	}
	token, err := tk.SessionToAccessToken(expired)
	require.NoError(t, err)

	// Genuinely signed, only the expiry is in the past.
	_, err = svc.VerifyAccess(token)
	assert.ErrorIs(t, err, core.ErrCredentialExpired)
}

func TestIdempotentRevoke(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := f.newIdentity(t, "alice")

	device1, err := f.svc.Issue(ctx, identity)
	require.NoError(t, err)
	device2, err := f.svc.Issue(ctx, identity)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, identity.ID, device1.RefreshToken))
	require.NoError(t, f.svc.Logout(ctx, identity.ID, device1.RefreshToken))

	_, err = f.svc.ValidateRefresh(ctx, identity.ID, device2.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshScenario(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := f.newIdentity(t, "alice")

	r1, err := f.svc.Issue(ctx, identity)
	require.NoError(t, err)

	r2, _, err := f.svc.Refresh(ctx, identity.ID, r1.RefreshToken)
	require.NoError(t, err)

	_, err = f.svc.ValidateRefresh(ctx, identity.ID, r1.RefreshToken)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	// Replaying R1 must nuke R2 as well.
	_, _, err = f.svc.Refresh(ctx, identity.ID, r1.RefreshToken)
	assert.ErrorIs(t, err, core.ErrBreachDetected)

	_, err = f.svc.ValidateRefresh(ctx, identity.ID, r2.RefreshToken)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestStoreFaultFailsClosed(t *testing.T) {
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	svc := NewAuthService(tokenizer.NewJWTTokenizer(signKey), faultyStore{}, users.NewMemoryRepository(), nil, nil)
	ctx := context.Background()

	// A store fault is never a breach and never a valid session.
	_, _, err = svc.Refresh(ctx, "u1", "value")
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, core.ErrBreachDetected)

	_, err = svc.Issue(ctx, &core.Identity{ID: "u1"})
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
}

func TestRefreshIdentityGone(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := f.newIdentity(t, "alice")

	pair, err := f.svc.Issue(ctx, identity)
	require.NoError(t, err)

	f.users.Delete(identity.ID)

	_, _, err = f.svc.Refresh(ctx, identity.ID, pair.RefreshToken)
	assert.ErrorIs(t, err, core.ErrIdentityNotFound)

	// No further token mutation: the record is still live.
	_, err = f.svc.ValidateRefresh(ctx, identity.ID, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestChallengeLoginFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tk := tokenizer.NewJWTTokenizer(signKey)
	svc := NewAuthService(tk, f.store, f.users, f.events, nil)

	walletKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	wallet := ethcrypto.PubkeyToAddress(walletKey.PublicKey).Hex()

	challengeToken, err := svc.CreateChallenge(wallet)
	require.NoError(t, err)

	challenge, err := tk.TokenToChallenge(challengeToken)
	require.NoError(t, err)

	sig, err := ethcrypto.Sign(eth.PersonalSignHash([]byte(challenge.Nonce)).Bytes(), walletKey)
	require.NoError(t, err)

	pair, identity, err := svc.Login(ctx, challengeToken, hexutil.Encode(sig), wallet, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, eth.NormalizeAddress(wallet), identity.WalletAddress)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	// Second login for the same wallet reuses the identity.
	challengeToken2, err := svc.CreateChallenge(wallet)
	require.NoError(t, err)
	challenge2, err := tk.TokenToChallenge(challengeToken2)
	require.NoError(t, err)
	sig2, err := ethcrypto.Sign(eth.PersonalSignHash([]byte(challenge2.Nonce)).Bytes(), walletKey)
	require.NoError(t, err)

	_, identity2, err := svc.Login(ctx, challengeToken2, hexutil.Encode(sig2), wallet, "someone-else")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, identity2.ID)
	assert.Equal(t, "alice", identity2.Username)
}

func TestLoginRejectsWrongSigner(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tk := tokenizer.NewJWTTokenizer(signKey)
	svc := NewAuthService(tk, f.store, f.users, f.events, nil)

	walletKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	wallet := ethcrypto.PubkeyToAddress(walletKey.PublicKey).Hex()

	intruderKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)

	challengeToken, err := svc.CreateChallenge(wallet)
	require.NoError(t, err)
	challenge, err := tk.TokenToChallenge(challengeToken)
	require.NoError(t, err)

	sig, err := ethcrypto.Sign(eth.PersonalSignHash([]byte(challenge.Nonce)).Bytes(), intruderKey)
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, challengeToken, hexutil.Encode(sig), wallet, "mallory")
	assert.ErrorIs(t, err, core.ErrInvalidSignature)
}

var _ ports.Store = faultyStore{}
var _ ports.EventPublisher = (*fakePublisher)(nil)
