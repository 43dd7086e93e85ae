package oidc

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cfszone_connect/magic_idp/internal/config"
)

// TokenHandler exchanges an authorization code for an access token and a
// signed ID token. The code is burned before client credentials are even
// looked at, so a failed exchange cannot be retried with fixed credentials.
type TokenHandler struct {
	service *Service
	keys    *KeyService
	cfg     config.Config
	nowFn   func() time.Time
}

func NewTokenHandler(service *Service, keys *KeyService, cfg config.Config) *TokenHandler {
	return &TokenHandler{
		service: service,
		keys:    keys,
		cfg:     cfg,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

func (h *TokenHandler) Handle(c *gin.Context) {
	grantType := strings.TrimSpace(c.PostForm("grant_type"))
	if grantType != "" && grantType != "authorization_code" {
		writeOAuthError(c, http.StatusBadRequest, "unsupported_grant_type", "grant_type must be authorization_code")
		return
	}
	code := strings.TrimSpace(c.PostForm("code"))
	clientID := strings.TrimSpace(c.PostForm("client_id"))
	clientSecret := strings.TrimSpace(c.PostForm("client_secret"))

	client, sess, err := h.service.ConsumeCode(c.Request.Context(), code)
	if errors.Is(err, ErrCodeNotFound) {
		writeOAuthError(c, http.StatusBadRequest, "invalid_grant", "authorization code is invalid")
		return
	}
	if err != nil {
		serverError(c, "consume authorization code", err)
		return
	}

	// The code is gone either way; a credential mismatch burns it too.
	authenticated, err := h.service.registry.Authenticate(clientID, clientSecret)
	if err != nil || authenticated.ID != client.ID {
		writeOAuthError(c, http.StatusBadRequest, "invalid_client", "client credentials are invalid")
		return
	}

	idToken, err := h.keys.SignIDToken(
		h.cfg.BaseURL(c.Request), sess.Email, sess.Request.ClientID,
		h.nowFn(), h.cfg.SessionDuration)
	if err != nil {
		serverError(c, "sign id token", err)
		return
	}
	auth, err := h.service.GenerateAuth(c.Request.Context(), sess.Email)
	if err != nil {
		serverError(c, "issue access token", err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken:  auth.Auth,
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.cfg.SessionDuration.Seconds()),
		IDToken:      idToken,
		RefreshToken: nil,
	})
}
