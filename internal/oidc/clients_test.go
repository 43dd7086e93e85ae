package oidc

import (
	"errors"
	"testing"

	"cfszone_connect/magic_idp/internal/config"
)

func testRegistry() *ClientRegistry {
	return NewClientRegistry(config.Config{OIDCClients: []config.OIDCClient{{
		ID:           "my_client",
		Secret:       "my_secret",
		RedirectURIs: []string{"https://openidconnect.net/callback"},
		Realms:       []string{"public"},
	}}})
}

func TestRedirectURLAllowsListedURI(t *testing.T) {
	r := testRegistry()
	got, err := r.RedirectURL("my_client", "https://openidconnect.net/callback")
	if err != nil {
		t.Fatalf("redirect url: %v", err)
	}
	if got != "https://openidconnect.net/callback" {
		t.Fatalf("unexpected redirect url: %q", got)
	}
}

func TestRedirectURLDecodesBeforeMatching(t *testing.T) {
	r := testRegistry()
	got, err := r.RedirectURL("my_client", "https%3A%2F%2Fopenidconnect.net%2Fcallback")
	if err != nil {
		t.Fatalf("redirect url: %v", err)
	}
	if got != "https://openidconnect.net/callback" {
		t.Fatalf("unexpected redirect url: %q", got)
	}
}

func TestRedirectURLRejectsUnlistedURI(t *testing.T) {
	r := testRegistry()
	cases := []string{
		"https://attacker.example.com/callback",
		"https://openidconnect.net/callback/extra",
		"https://openidconnect.net",
		"",
	}
	for _, uri := range cases {
		if _, err := r.RedirectURL("my_client", uri); !errors.Is(err, ErrInvalidRedirectURI) {
			t.Fatalf("uri %q: expected ErrInvalidRedirectURI, got %v", uri, err)
		}
	}
}

func TestRedirectURLUnknownClient(t *testing.T) {
	r := testRegistry()
	if _, err := r.RedirectURL("other_client", "https://openidconnect.net/callback"); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	r := testRegistry()
	if _, err := r.Authenticate("my_client", "my_secret"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := r.Authenticate("my_client", "wrong"); err == nil {
		t.Fatal("wrong secret must not authenticate")
	}
	if _, err := r.Authenticate("other", "my_secret"); err == nil {
		t.Fatal("unknown client must not authenticate")
	}
}
