package oidc

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"cfszone_connect/magic_idp/internal/directory"
	"cfszone_connect/magic_idp/internal/token"
	"cfszone_connect/magic_idp/internal/websession"
)

// AuthorizeHandler begins the authorization-code flow. The request is
// stashed in the cookie session first so it survives the login redirect;
// client and redirect validation happen at code-minting time.
type AuthorizeHandler struct {
	service *Service
	tokens  *token.Service
}

func NewAuthorizeHandler(service *Service, tokens *token.Service) *AuthorizeHandler {
	return &AuthorizeHandler{service: service, tokens: tokens}
}

func (h *AuthorizeHandler) Handle(c *gin.Context) {
	req := AuthorizeRequest{}
	if err := c.ShouldBind(&req); err != nil {
		writeOAuthError(c, http.StatusBadRequest, "invalid_request", "malformed authorize request")
		return
	}
	slog.Info("beginning OIDC flow", "client_id", req.ClientID)

	sess := sessions.Default(c)
	websession.StashPending(sess, req.Encode())

	user, ok := h.sessionUser(c)
	if !ok {
		if err := sess.Save(); err != nil {
			serverError(c, "save session", err)
			return
		}
		c.Redirect(http.StatusFound, "/login?"+req.Encode())
		return
	}

	oidcSession, err := h.service.GenerateCode(c.Request.Context(), user.Email, req)
	if errors.Is(err, ErrClientNotFound) {
		writeOAuthError(c, http.StatusBadRequest, "invalid_request", "unknown client_id")
		return
	}
	if err != nil {
		serverError(c, "generate authorization code", err)
		return
	}
	redirect, err := h.service.RedirectURL(oidcSession)
	if err != nil {
		writeOAuthError(c, http.StatusBadRequest, "invalid_request", "redirect_uri is not allowed for this client")
		return
	}
	if err := sess.Save(); err != nil {
		serverError(c, "save session", err)
		return
	}
	slog.Info("redirecting to client", "client_id", req.ClientID)
	c.Redirect(http.StatusFound, redirect)
}

func (h *AuthorizeHandler) sessionUser(c *gin.Context) (directory.User, bool) {
	code := websession.Code(sessions.Default(c))
	if code == "" {
		return directory.User{}, false
	}
	t, err := h.tokens.Lookup(c.Request.Context(), code, token.KindSession)
	if err != nil {
		return directory.User{}, false
	}
	return h.tokens.ResolveUser(t)
}
