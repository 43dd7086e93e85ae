package oidc

import (
	"crypto/subtle"
	"errors"
	"net/url"

	"cfszone_connect/magic_idp/internal/config"
)

var (
	ErrClientNotFound     = errors.New("client not found")
	ErrInvalidRedirectURI = errors.New("invalid redirect uri")
)

// Client is a statically configured relying party. Clients are never
// created or mutated at runtime; this is purely a validation reference.
type Client struct {
	ID           string
	Secret       string
	RedirectURIs []string
	Realms       []string
}

type ClientRegistry struct {
	byID map[string]Client
}

func NewClientRegistry(cfg config.Config) *ClientRegistry {
	byID := make(map[string]Client, len(cfg.OIDCClients))
	for _, entry := range cfg.OIDCClients {
		byID[entry.ID] = Client{
			ID:           entry.ID,
			Secret:       entry.Secret,
			RedirectURIs: append([]string(nil), entry.RedirectURIs...),
			Realms:       append([]string(nil), entry.Realms...),
		}
	}
	return &ClientRegistry{byID: byID}
}

func (r *ClientRegistry) Get(clientID string) (Client, error) {
	client, ok := r.byID[clientID]
	if !ok {
		return Client{}, ErrClientNotFound
	}
	return client, nil
}

// RedirectURL decodes a candidate redirect URI and requires verbatim
// membership in the client's allow-list. Every redirect carrying a code or
// token must pass through here first; failure aborts the request instead
// of redirecting.
func (r *ClientRegistry) RedirectURL(clientID, rawRedirectURI string) (string, error) {
	client, err := r.Get(clientID)
	if err != nil {
		return "", err
	}
	decoded, err := url.QueryUnescape(rawRedirectURI)
	if err != nil {
		return "", ErrInvalidRedirectURI
	}
	for _, allowed := range client.RedirectURIs {
		if allowed == decoded {
			return decoded, nil
		}
	}
	return "", ErrInvalidRedirectURI
}

// Authenticate checks client credentials at the token endpoint. Both
// comparisons are constant-time.
func (r *ClientRegistry) Authenticate(clientID, clientSecret string) (Client, error) {
	client, err := r.Get(clientID)
	if err != nil {
		return Client{}, ErrClientNotFound
	}
	if !constantTimeEquals(client.ID, clientID) || !constantTimeEquals(client.Secret, clientSecret) {
		return Client{}, ErrClientNotFound
	}
	return client, nil
}

func constantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
