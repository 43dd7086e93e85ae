package token

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cfszone_connect/magic_idp/internal/config"
	"cfszone_connect/magic_idp/internal/directory"
	"cfszone_connect/magic_idp/internal/store"
)

func testConfig() config.Config {
	return config.Config{
		Users: []config.User{
			{Email: "valid@example.com", Username: "valid", Name: "Valid User"},
		},
		SessionDuration:  30 * 24 * time.Hour,
		LinkDuration:     12 * time.Hour,
		OIDCCodeDuration: 5 * time.Minute,
	}
}

func newTestService(t *testing.T) (*Service, directory.User) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.sqlite3"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	cfg := testConfig()
	dir := directory.New(cfg)
	user, ok := dir.FindByEmail("valid@example.com")
	if !ok {
		t.Fatal("test user missing")
	}
	return NewService(s, dir, cfg), user
}

func TestIssueAndRedeem(t *testing.T) {
	svc, user := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, KindMagicLink, user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issued.Code == "" {
		t.Fatal("issued token has empty code")
	}
	if issued.ExpiresAt.Sub(issued.CreatedAt) != 12*time.Hour {
		t.Fatalf("unexpected magic link lifetime: %v", issued.ExpiresAt.Sub(issued.CreatedAt))
	}

	redeemed, err := svc.Redeem(ctx, issued.Code, KindMagicLink)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redeemed.Email != user.Email {
		t.Fatalf("unexpected owner: %q", redeemed.Email)
	}
}

func TestRedeemIsSingleUse(t *testing.T) {
	svc, user := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, KindSession, user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Redeem(ctx, issued.Code, KindSession); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if _, err := svc.Redeem(ctx, issued.Code, KindSession); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("second redeem must miss, got %v", err)
	}
}

func TestRedeemWrongKindMisses(t *testing.T) {
	svc, user := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, KindMagicLink, user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Redeem(ctx, issued.Code, KindSession); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("cross-kind redeem must miss, got %v", err)
	}
	// The miss must not have burned the row under its real kind.
	if _, err := svc.Redeem(ctx, issued.Code, KindMagicLink); err != nil {
		t.Fatalf("redeem under real kind: %v", err)
	}
}

func TestRedeemExpiredBurnsRow(t *testing.T) {
	svc, user := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, KindMagicLink, user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	svc.nowFn = func() time.Time { return time.Now().UTC().Add(13 * time.Hour) }

	if _, err := svc.Redeem(ctx, issued.Code, KindMagicLink); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expired redeem must miss, got %v", err)
	}

	// The lookup that rejected the code must also have removed the row.
	var count int
	err = svc.store.DB().QueryRow(`SELECT COUNT(*) FROM tokens WHERE code = ?`, issued.Code).Scan(&count)
	if err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Fatal("expired row still present after redemption attempt")
	}

	// Nor can a later call resurrect it.
	svc.nowFn = func() time.Time { return time.Now().UTC() }
	if _, err := svc.Redeem(ctx, issued.Code, KindMagicLink); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("burned code resurrected: %v", err)
	}
}

func TestLookupDoesNotConsume(t *testing.T) {
	svc, user := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, KindSession, user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	for i := 0; i < 3; i++ {
		got, err := svc.Lookup(ctx, issued.Code, KindSession)
		if err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
		if got.Email != user.Email {
			t.Fatalf("unexpected owner: %q", got.Email)
		}
	}
}

func TestLookupExpiredDeletesRow(t *testing.T) {
	svc, user := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, KindSession, user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	svc.nowFn = func() time.Time { return time.Now().UTC().Add(31 * 24 * time.Hour) }
	if _, err := svc.Lookup(ctx, issued.Code, KindSession); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expired lookup must miss, got %v", err)
	}
	var count int
	if err := svc.store.DB().QueryRow(`SELECT COUNT(*) FROM tokens`).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Fatal("expired session row lingers")
	}
}

func TestResolveUser(t *testing.T) {
	svc, user := newTestService(t)

	resolved, ok := svc.ResolveUser(Token{Email: user.Email})
	if !ok || resolved.Username != "valid" {
		t.Fatalf("expected directory hit, got ok=%v user=%+v", ok, resolved)
	}
	if _, ok := svc.ResolveUser(Token{Email: "gone@example.com"}); ok {
		t.Fatal("removed user must fail authentication")
	}
}

func TestKindDurations(t *testing.T) {
	cfg := testConfig()
	if KindOIDCAuth.Duration(cfg) != cfg.SessionDuration {
		t.Fatal("access token lifetime must match session duration")
	}
	if KindOIDCCode.Duration(cfg) != 5*time.Minute {
		t.Fatal("unexpected oidc code lifetime")
	}
}
