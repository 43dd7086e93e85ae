package token

import (
	"time"

	"cfszone_connect/magic_idp/internal/config"
)

// Kind tags a credential with its lifecycle policy. One redemption
// algorithm covers all kinds; only the validity duration differs.
type Kind string

const (
	KindMagicLink Kind = "magic_link"
	KindSession   Kind = "session"
	KindOIDCCode  Kind = "oidc_code"
	KindOIDCAuth  Kind = "oidc_auth"
)

// Duration resolves the configured validity window for this kind. OIDC
// access tokens share the session lifetime.
func (k Kind) Duration(cfg config.Config) time.Duration {
	switch k {
	case KindMagicLink:
		return cfg.LinkDuration
	case KindOIDCCode:
		return cfg.OIDCCodeDuration
	case KindSession, KindOIDCAuth:
		return cfg.SessionDuration
	}
	return cfg.SessionDuration
}

// Token is a single-use or session-scoped secret. The code is the
// credential itself: possession equals authentication.
type Token struct {
	Code      string
	Kind      Kind
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
