package oidc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"cfszone_connect/magic_idp/internal/config"
	"cfszone_connect/magic_idp/internal/directory"
	"cfszone_connect/magic_idp/internal/store"
	"cfszone_connect/magic_idp/internal/token"
)

// ErrCodeNotFound covers unknown, consumed, and expired authorization
// codes alike; the token endpoint must not leak which case occurred.
var ErrCodeNotFound = errors.New("authorization code not found")

// Session is an authorization-code record: the minted code plus the
// originating request it was minted for. The row is destroyed the moment
// it is looked up for redemption, regardless of outcome.
type Session struct {
	Code      string
	Email     string
	ExpiresAt time.Time
	Request   AuthorizeRequest
}

// Auth is an access-token record. Unlike codes it is consulted, not
// consumed, on each userinfo call until it expires.
type Auth struct {
	Auth      string
	Email     string
	ExpiresAt time.Time
}

// Service owns the OIDC rows in the persistent store and the protocol
// rules tying them to the static client registry.
type Service struct {
	store    *store.Store
	registry *ClientRegistry
	dir      *directory.Directory
	cfg      config.Config
	nowFn    func() time.Time
}

func NewService(s *store.Store, registry *ClientRegistry, dir *directory.Directory, cfg config.Config) *Service {
	return &Service{
		store:    s,
		registry: registry,
		dir:      dir,
		cfg:      cfg,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// GenerateCode mints an authorization code for an authenticated user
// completing the given request. Unknown clients are rejected before any
// row is written.
func (s *Service) GenerateCode(ctx context.Context, email string, req AuthorizeRequest) (Session, error) {
	if _, err := s.registry.Get(req.ClientID); err != nil {
		return Session{}, err
	}
	code, err := token.RandomCode()
	if err != nil {
		return Session{}, fmt.Errorf("generate oidc code: %w", err)
	}
	expiresAt := s.nowFn().Add(token.KindOIDCCode.Duration(s.cfg))
	_, err = s.store.DB().ExecContext(ctx,
		`INSERT INTO oidc_codes (code, email, expires_at, scope, response_type, client_id, redirect_uri, state)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		code, email, expiresAt.UnixMilli(),
		req.Scope, req.ResponseType, req.ClientID, req.RedirectURI, req.State)
	if err != nil {
		return Session{}, fmt.Errorf("persist oidc code: %w", err)
	}
	return Session{Code: code, Email: email, ExpiresAt: expiresAt, Request: req}, nil
}

// ConsumeCode burns an authorization code and, when it was live, returns
// the client it belongs to. The delete happens in the same statement as
// the read, so a replayed code observes an absent row; expiry and client
// validation run only after the burn.
func (s *Service) ConsumeCode(ctx context.Context, code string) (Client, Session, error) {
	if code == "" {
		return Client{}, Session{}, ErrCodeNotFound
	}
	sess := Session{Code: code}
	var expiresAt int64
	err := s.store.DB().QueryRowContext(ctx,
		`DELETE FROM oidc_codes WHERE code = ?
		 RETURNING email, expires_at, scope, response_type, client_id, redirect_uri, state`,
		code).Scan(&sess.Email, &expiresAt,
		&sess.Request.Scope, &sess.Request.ResponseType, &sess.Request.ClientID,
		&sess.Request.RedirectURI, &sess.Request.State)
	if errors.Is(err, sql.ErrNoRows) {
		return Client{}, Session{}, ErrCodeNotFound
	}
	if err != nil {
		return Client{}, Session{}, fmt.Errorf("consume oidc code: %w", err)
	}
	sess.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	if !s.nowFn().Before(sess.ExpiresAt) {
		return Client{}, Session{}, ErrCodeNotFound
	}
	if _, err := s.registry.RedirectURL(sess.Request.ClientID, sess.Request.RedirectURI); err != nil {
		return Client{}, Session{}, ErrCodeNotFound
	}
	client, err := s.registry.Get(sess.Request.ClientID)
	if err != nil {
		return Client{}, Session{}, ErrCodeNotFound
	}
	return client, sess, nil
}

// RedirectURL builds the client callback carrying the code. The allow-list
// check is mandatory before constructing any redirect.
func (s *Service) RedirectURL(sess Session) (string, error) {
	base, err := s.registry.RedirectURL(sess.Request.ClientID, sess.Request.RedirectURI)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", ErrInvalidRedirectURI
	}
	q := u.Query()
	q.Set("code", sess.Code)
	q.Set("state", sess.Request.State)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// GenerateAuth mints an access token after a successful code exchange. Its
// lifetime matches the session duration.
func (s *Service) GenerateAuth(ctx context.Context, email string) (Auth, error) {
	auth, err := token.RandomCode()
	if err != nil {
		return Auth{}, fmt.Errorf("generate access token: %w", err)
	}
	expiresAt := s.nowFn().Add(token.KindOIDCAuth.Duration(s.cfg))
	_, err = s.store.DB().ExecContext(ctx,
		`INSERT INTO oidc_auth (auth, email, expires_at) VALUES (?, ?, ?)`,
		auth, email, expiresAt.UnixMilli())
	if err != nil {
		return Auth{}, fmt.Errorf("persist access token: %w", err)
	}
	return Auth{Auth: auth, Email: email, ExpiresAt: expiresAt}, nil
}

// ResolveAuth maps a bearer token back to a directory user. An expired row
// is deleted on sight and reported as absent; a missing row, an expired
// row, and a user removed from configuration are indistinguishable to the
// caller.
func (s *Service) ResolveAuth(ctx context.Context, auth string) (directory.User, bool, error) {
	var (
		email     string
		expiresAt int64
	)
	err := s.store.DB().QueryRowContext(ctx,
		`SELECT email, expires_at FROM oidc_auth WHERE auth = ?`, auth).Scan(&email, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.User{}, false, nil
	}
	if err != nil {
		return directory.User{}, false, fmt.Errorf("lookup access token: %w", err)
	}
	if !s.nowFn().Before(time.UnixMilli(expiresAt).UTC()) {
		if _, err := s.store.DB().ExecContext(ctx, `DELETE FROM oidc_auth WHERE auth = ?`, auth); err != nil {
			return directory.User{}, false, fmt.Errorf("delete expired access token: %w", err)
		}
		return directory.User{}, false, nil
	}
	user, ok := s.dir.FindByEmail(email)
	return user, ok, nil
}
