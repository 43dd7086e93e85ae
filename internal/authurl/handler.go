// Package authurl reflects an authenticated identity as response headers
// for reverse proxies (forward-auth). It holds no state of its own.
package authurl

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"cfszone_connect/magic_idp/internal/config"
	"cfszone_connect/magic_idp/internal/token"
	"cfszone_connect/magic_idp/internal/websession"
)

type Handler struct {
	tokens *token.Service
	cfg    config.Config
}

func NewHandler(tokens *token.Service, cfg config.Config) *Handler {
	return &Handler{tokens: tokens, cfg: cfg}
}

// Handle answers with identity headers for a valid session and a login
// redirect otherwise. Proxies treat the 302 as "authentication required".
func (h *Handler) Handle(c *gin.Context) {
	code := websession.Code(sessions.Default(c))
	t, err := h.tokens.Lookup(c.Request.Context(), code, token.KindSession)
	if errors.Is(err, token.ErrTokenNotFound) {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	if err != nil {
		slog.Error("lookup session", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	user, ok := h.tokens.ResolveUser(t)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	c.Header(h.cfg.AuthURLEmailHeader, user.Email)
	c.Header(h.cfg.AuthURLUserHeader, user.Username)
	c.Header(h.cfg.AuthURLNameHeader, user.Name)
	c.String(http.StatusOK, user.Email)
}
