package http

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midnight-labs/pincade/adapters/store"
	"github.com/midnight-labs/pincade/adapters/tokenizer"
	"github.com/midnight-labs/pincade/adapters/users"
	"github.com/midnight-labs/pincade/core"
	"github.com/midnight-labs/pincade/service"
)

// expires_in must follow whatever TTL the service actually signs into
// the access credential, not a constant of its own.
func TestTokenResponseAdvertisesSignedTTL(t *testing.T) {
	gin.SetMode(gin.TestMode)

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	auth := service.NewAuthService(tokenizer.NewJWTTokenizer(signKey), store.NewMemoryStore(), users.NewMemoryRepository(), nil, nil)
	h := NewHandlers(auth, nil)

	resp := h.tokenResponse(
		&core.TokenPair{AccessToken: "a", RefreshToken: "r"},
		&core.Identity{ID: "u1", Username: "alice", WalletAddress: "0xab5801a7d398351b8be11c439e05c5b3259aec9b"},
	)

	assert.Equal(t, int(auth.AccessTTL().Seconds()), resp["expires_in"])
}
