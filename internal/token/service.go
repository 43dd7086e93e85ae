package token

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"cfszone_connect/magic_idp/internal/config"
	"cfszone_connect/magic_idp/internal/directory"
	"cfszone_connect/magic_idp/internal/store"
)

// ErrTokenNotFound covers unknown, already-redeemed, and expired codes
// alike so callers cannot distinguish the cases.
var ErrTokenNotFound = errors.New("token not found")

const codeBytes = 32

type Service struct {
	store *store.Store
	dir   *directory.Directory
	cfg   config.Config
	nowFn func() time.Time
}

func NewService(s *store.Store, dir *directory.Directory, cfg config.Config) *Service {
	return &Service{
		store: s,
		dir:   dir,
		cfg:   cfg,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// Issue mints a fresh credential for the user and persists it. It fails
// only on storage errors.
func (s *Service) Issue(ctx context.Context, kind Kind, user directory.User) (Token, error) {
	code, err := randomURLSafe(codeBytes)
	if err != nil {
		return Token{}, fmt.Errorf("generate token code: %w", err)
	}
	now := s.nowFn()
	t := Token{
		Code:      code,
		Kind:      kind,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(kind.Duration(s.cfg)),
	}
	_, err = s.store.DB().ExecContext(ctx,
		`INSERT INTO tokens (code, kind, email, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		t.Code, string(t.Kind), t.Email, t.CreatedAt.UnixMilli(), t.ExpiresAt.UnixMilli())
	if err != nil {
		return Token{}, fmt.Errorf("persist token: %w", err)
	}
	return t, nil
}

// Redeem consumes a code. The row is deleted in the same statement that
// reads it, so concurrent redemptions of one code cannot both observe it;
// the expiry check happens after the delete, which means an expired code
// is burned by the lookup that rejects it.
func (s *Service) Redeem(ctx context.Context, code string, kind Kind) (Token, error) {
	if code == "" {
		return Token{}, ErrTokenNotFound
	}
	var (
		email     string
		createdAt int64
		expiresAt int64
	)
	err := s.store.DB().QueryRowContext(ctx,
		`DELETE FROM tokens WHERE code = ? AND kind = ? RETURNING email, created_at, expires_at`,
		code, string(kind)).Scan(&email, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Token{}, ErrTokenNotFound
	}
	if err != nil {
		return Token{}, fmt.Errorf("redeem token: %w", err)
	}
	t := Token{
		Code:      code,
		Kind:      kind,
		Email:     email,
		CreatedAt: time.UnixMilli(createdAt).UTC(),
		ExpiresAt: time.UnixMilli(expiresAt).UTC(),
	}
	if t.Expired(s.nowFn()) {
		return Token{}, ErrTokenNotFound
	}
	return t, nil
}

// Lookup validates a session-scoped credential without consuming it, so
// the same session code can be checked on every request until it expires.
// An expired row is deleted on sight and reported as absent.
func (s *Service) Lookup(ctx context.Context, code string, kind Kind) (Token, error) {
	if code == "" {
		return Token{}, ErrTokenNotFound
	}
	var (
		email     string
		createdAt int64
		expiresAt int64
	)
	err := s.store.DB().QueryRowContext(ctx,
		`SELECT email, created_at, expires_at FROM tokens WHERE code = ? AND kind = ?`,
		code, string(kind)).Scan(&email, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Token{}, ErrTokenNotFound
	}
	if err != nil {
		return Token{}, fmt.Errorf("lookup token: %w", err)
	}
	t := Token{
		Code:      code,
		Kind:      kind,
		Email:     email,
		CreatedAt: time.UnixMilli(createdAt).UTC(),
		ExpiresAt: time.UnixMilli(expiresAt).UTC(),
	}
	if t.Expired(s.nowFn()) {
		if _, err := s.store.DB().ExecContext(ctx,
			`DELETE FROM tokens WHERE code = ? AND kind = ?`, code, string(kind)); err != nil {
			return Token{}, fmt.Errorf("delete expired token: %w", err)
		}
		return Token{}, ErrTokenNotFound
	}
	return t, nil
}

// ResolveUser maps a redeemed token back to a directory entry. A user
// removed from configuration after issuance fails authentication here.
func (s *Service) ResolveUser(t Token) (directory.User, bool) {
	return s.dir.FindByEmail(t.Email)
}

// RandomCode returns a fresh credential-grade random string of the same
// shape the token service uses for its own codes.
func RandomCode() (string, error) {
	return randomURLSafe(codeBytes)
}

func randomURLSafe(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
