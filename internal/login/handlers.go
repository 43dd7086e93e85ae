// Package login owns the passwordless entry points: the sign-in page, the
// magic-link request, and the link redemption that establishes a browser
// session and completes any pending OIDC authorize request.
package login

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"cfszone_connect/magic_idp/internal/config"
	"cfszone_connect/magic_idp/internal/directory"
	"cfszone_connect/magic_idp/internal/mailer"
	"cfszone_connect/magic_idp/internal/oidc"
	"cfszone_connect/magic_idp/internal/token"
	"cfszone_connect/magic_idp/internal/websession"
)

var pageTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<form method="post" action="/login">
<label for="email">Email</label>
<input type="email" id="email" name="email" required>
<button type="submit">Send sign-in link</button>
</form>
</body>
</html>
`))

type Handler struct {
	tokens  *token.Service
	oidcSvc *oidc.Service
	dir     *directory.Directory
	mail    mailer.Mailer
	cfg     config.Config
}

func NewHandler(tokens *token.Service, oidcSvc *oidc.Service, dir *directory.Directory, mail mailer.Mailer, cfg config.Config) *Handler {
	return &Handler{tokens: tokens, oidcSvc: oidcSvc, dir: dir, mail: mail, cfg: cfg}
}

// HandlePage renders the sign-in form. Any authorize request forwarded in
// the query string rides along as hidden state in the cookie session set
// by the authorize handler, so the form itself stays plain.
func (h *Handler) HandlePage(c *gin.Context) {
	var body strings.Builder
	if err := pageTemplate.Execute(&body, gin.H{"Title": h.cfg.Title}); err != nil {
		c.String(http.StatusInternalServerError, "could not render page")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body.String()))
}

// HandleRequest accepts an email and mails a magic link. An unknown email
// is a 401, matching the credential-failure policy elsewhere.
func (h *Handler) HandleRequest(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	user, ok := h.dir.FindByEmail(email)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}

	link, err := h.tokens.Issue(c.Request.Context(), token.KindMagicLink, user)
	if err != nil {
		slog.Error("issue magic link", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	url := fmt.Sprintf("%s/login/%s", h.cfg.BaseURL(c.Request), link.Code)
	if err := h.mail.SendMagicLink(c.Request.Context(), user.Email, url); err != nil {
		slog.Error("send magic link", "email", user.Email, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusOK)
}

// HandleMagic redeems a magic link, establishes the browser session, and,
// when an authorize request is pending, immediately mints the code and
// sends the browser to the client.
func (h *Handler) HandleMagic(c *gin.Context) {
	magic := c.Param("magic")

	redeemed, err := h.tokens.Redeem(c.Request.Context(), magic, token.KindMagicLink)
	if errors.Is(err, token.ErrTokenNotFound) {
		c.Status(http.StatusUnauthorized)
		return
	}
	if err != nil {
		slog.Error("redeem magic link", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	user, ok := h.tokens.ResolveUser(redeemed)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}

	userSession, err := h.tokens.Issue(c.Request.Context(), token.KindSession, user)
	if err != nil {
		slog.Error("issue session", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	slog.Info("user logged in", "email", user.Email)

	sess := sessions.Default(c)
	websession.SetCode(sess, userSession.Code)
	pending, hasPending := websession.ConsumePending(sess)
	if err := sess.Save(); err != nil {
		slog.Error("save session", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if !hasPending {
		c.Redirect(http.StatusFound, "/")
		return
	}

	req, err := oidc.DecodeAuthorizeRequest(pending)
	if err != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	oidcSession, err := h.oidcSvc.GenerateCode(c.Request.Context(), user.Email, req)
	if errors.Is(err, oidc.ErrClientNotFound) {
		c.JSON(http.StatusBadRequest, oidc.OAuthError{Error: "invalid_request", ErrorDescription: "unknown client_id"})
		return
	}
	if err != nil {
		slog.Error("generate authorization code", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	redirect, err := h.oidcSvc.RedirectURL(oidcSession)
	if err != nil {
		c.JSON(http.StatusBadRequest, oidc.OAuthError{Error: "invalid_request", ErrorDescription: "redirect_uri is not allowed for this client"})
		return
	}
	slog.Info("redirecting to client", "client_id", req.ClientID)
	c.Redirect(http.StatusFound, redirect)
}
