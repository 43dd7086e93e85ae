// Package server assembles the identity provider: storage, signing keys,
// cookie sessions, and every HTTP route.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"cfszone_connect/magic_idp/internal/authurl"
	"cfszone_connect/magic_idp/internal/config"
	"cfszone_connect/magic_idp/internal/directory"
	"cfszone_connect/magic_idp/internal/login"
	"cfszone_connect/magic_idp/internal/mailer"
	"cfszone_connect/magic_idp/internal/oidc"
	"cfszone_connect/magic_idp/internal/store"
	"cfszone_connect/magic_idp/internal/token"
	"cfszone_connect/magic_idp/internal/webauthn"
	"cfszone_connect/magic_idp/internal/websession"
)

const cookieSecretKVName = "secret"

// New wires the full application over an opened store and returns the
// router ready to serve. All configuration is immutable from here on.
func New(ctx context.Context, cfg config.Config, st *store.Store, mail mailer.Mailer) (*gin.Engine, error) {
	secret, err := cookieSecret(ctx, st)
	if err != nil {
		return nil, err
	}
	keys, err := oidc.Bootstrap(ctx, st)
	if err != nil {
		return nil, err
	}
	if _, err := webauthn.New(cfg); err != nil {
		return nil, fmt.Errorf("webauthn relying party: %w", err)
	}

	dir := directory.New(cfg)
	registry := oidc.NewClientRegistry(cfg)
	tokens := token.NewService(st, dir, cfg)
	oidcSvc := oidc.NewService(st, registry, dir, cfg)

	authorizeHandler := oidc.NewAuthorizeHandler(oidcSvc, tokens)
	tokenHandler := oidc.NewTokenHandler(oidcSvc, keys, cfg)
	userinfoHandler := oidc.NewUserInfoHandler(oidcSvc)
	metadataHandler := oidc.NewMetadataHandler(cfg, keys)
	loginHandler := login.NewHandler(tokens, oidcSvc, dir, mail, cfg)
	authURLHandler := authurl.NewHandler(tokens, cfg)

	cookieStore := cookie.NewStore(secret)
	// The gorilla defaults (Secure, SameSite=None) make browsers drop the
	// cookie over plain HTTP, which is the default deployment.
	cookieStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionDuration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sessions.Sessions(websession.CookieName, cookieStore))

	router.GET("/", authURLHandler.Handle)
	router.GET("/login", loginHandler.HandlePage)
	router.POST("/login", loginHandler.HandleRequest)
	router.GET("/login/:magic", loginHandler.HandleMagic)
	router.GET("/oidc/authorize", authorizeHandler.Handle)
	router.POST("/oidc/authorize", authorizeHandler.Handle)
	router.POST("/oidc/token", tokenHandler.Handle)
	router.GET("/oidc/userinfo", userinfoHandler.Handle)
	router.GET("/oidc/jwks", metadataHandler.HandleJWKS)
	router.GET("/.well-known/openid-configuration", metadataHandler.HandleDiscovery)

	return router, nil
}

// cookieSecret loads the session-cookie auth key from the bootstrap KV
// area, generating and persisting one on first start so cookies survive
// restarts.
func cookieSecret(ctx context.Context, st *store.Store) ([]byte, error) {
	encoded, err := st.GetKV(ctx, cookieSecretKVName)
	if err == nil {
		secret, decodeErr := hex.DecodeString(encoded)
		if decodeErr != nil {
			return nil, fmt.Errorf("decode cookie secret: %w", decodeErr)
		}
		return secret, nil
	}
	if !errors.Is(err, store.ErrKVNotFound) {
		return nil, fmt.Errorf("load cookie secret: %w", err)
	}

	secret := make([]byte, 64)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate cookie secret: %w", err)
	}
	if err := st.SetKV(ctx, cookieSecretKVName, hex.EncodeToString(secret)); err != nil {
		return nil, fmt.Errorf("persist cookie secret: %w", err)
	}
	slog.Info("generated new session cookie secret")
	return secret, nil
}
