package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/midnight-labs/pincade/core"
	"github.com/midnight-labs/pincade/service"
)

// Handlers contains the HTTP handlers for auth and game endpoints
type Handlers struct {
	auth *service.AuthService
	game *service.GameService
}

// NewHandlers creates new HTTP handlers
func NewHandlers(auth *service.AuthService, game *service.GameService) *Handlers {
	return &Handlers{auth: auth, game: game}
}

type userPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Wallet   string `json:"wallet"`
}

// tokenResponse advertises the same expiry the service signed into the
// access credential.
func (h *Handlers) tokenResponse(pair *core.TokenPair, identity *core.Identity) gin.H {
	return gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    int(h.auth.AccessTTL().Seconds()),
		"user": userPayload{
			ID:       identity.ID,
			Username: identity.Username,
			Wallet:   identity.WalletAddress,
		},
	}
}

// Challenge handles the challenge request
func (h *Handlers) Challenge(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, err := h.auth.CreateChallenge(req.Address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Login handles the login request
func (h *Handlers) Login(c *gin.Context) {
	var req struct {
		ChallengeToken string `json:"challenge_token" binding:"required"`
		Signature      string `json:"signature" binding:"required"`
		Address        string `json:"address" binding:"required"`
		Username       string `json:"username" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	pair, identity, err := h.auth.Login(c.Request.Context(), req.ChallengeToken, req.Signature, req.Address, req.Username)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidChallenge):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge token"})
		case errors.Is(err, core.ErrCredentialExpired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "challenge token expired"})
		case errors.Is(err, core.ErrInvalidSignature):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		case errors.Is(err, core.ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		}
		return
	}

	c.JSON(http.StatusOK, h.tokenResponse(pair, identity))
}

// Refresh handles token rotation, surfacing breach detection as a
// distinguished failure rather than a generic 401
func (h *Handlers) Refresh(c *gin.Context) {
	var req struct {
		UserID       string `json:"user_id" binding:"required"`
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	pair, identity, err := h.auth.Refresh(c.Request.Context(), req.UserID, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrBreachDetected):
			// All of the user's sessions are gone; the UI must force a
			// fresh login.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session security breach detected", "code": "breach_detected"})
		case errors.Is(err, core.ErrIdentityNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		case errors.Is(err, core.ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to refresh tokens"})
		}
		return
	}

	c.JSON(http.StatusOK, h.tokenResponse(pair, identity))
}

// Logout revokes one session
func (h *Handlers) Logout(c *gin.Context) {
	var req struct {
		UserID       string `json:"user_id" binding:"required"`
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.UserID, req.RefreshToken); err != nil {
		if errors.Is(err, core.ErrStoreUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// LogoutAll revokes every session of the authenticated user
func (h *Handlers) LogoutAll(c *gin.Context) {
	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not found in context"})
		return
	}

	revoked, err := h.auth.LogoutAll(c.Request.Context(), session.Identity.ID)
	if err != nil {
		if errors.Is(err, core.ErrStoreUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"revoked": revoked})
}

// Me returns the authenticated identity with its leaderboard standing
func (h *Handlers) Me(c *gin.Context) {
	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not found in context"})
		return
	}

	resp := gin.H{
		"id":       session.Identity.ID,
		"username": session.Identity.Username,
		"wallet":   session.Identity.WalletAddress,
	}

	// The standing is decoration on the identity; a leaderboard outage
	// must not turn the profile read into an error.
	if rank, score, err := h.game.PlayerRank(c.Request.Context(), session.Identity.ID); err == nil {
		resp["rank"] = rank
		resp["score"] = score
	}

	c.JSON(http.StatusOK, resp)
}

// StartRound opens a new PIN round
func (h *Handlers) StartRound(c *gin.Context) {
	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not found in context"})
		return
	}

	round, err := h.game.StartRound(c.Request.Context(), session.Identity.ID)
	if err != nil {
		if errors.Is(err, core.ErrStoreUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start round"})
		return
	}

	c.JSON(http.StatusCreated, round)
}

// Guess submits one guess into a round
func (h *Handlers) Guess(c *gin.Context) {
	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not found in context"})
		return
	}

	var req struct {
		Guess string `json:"guess" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.game.Guess(c.Request.Context(), session.Identity.ID, c.Param("id"), req.Guess)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidGuess):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, core.ErrRoundNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "round not found"})
		case errors.Is(err, core.ErrRoundFinished):
			c.JSON(http.StatusConflict, gin.H{"error": "round already finished"})
		case errors.Is(err, core.ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process guess"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRound returns the client-visible round state
func (h *Handlers) GetRound(c *gin.Context) {
	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not found in context"})
		return
	}

	round, err := h.game.Round(c.Request.Context(), session.Identity.ID, c.Param("id"))
	if err != nil {
		if errors.Is(err, core.ErrRoundNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "round not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load round"})
		return
	}

	c.JSON(http.StatusOK, round)
}

// Leaderboard returns the top-ranked players
func (h *Handlers) Leaderboard(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	entries, err := h.game.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// ChainScore reads the authenticated wallet's on-chain score
func (h *Handlers) ChainScore(c *gin.Context) {
	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not found in context"})
		return
	}

	score, err := h.game.ChainScore(c.Request.Context(), session.Identity.WalletAddress)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to read on-chain score"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": session.Identity.WalletAddress, "score": score})
}

// Reward reads the authenticated wallet's accrued reward balance,
// converted from wei to whole token units
func (h *Handlers) Reward(c *gin.Context) {
	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not found in context"})
		return
	}

	reward, err := h.game.RewardBalance(c.Request.Context(), session.Identity.WalletAddress)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to read reward balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": session.Identity.WalletAddress, "reward": reward})
}
