// Package webauthn bootstraps the relying-party configuration used by
// credential ceremonies. The ceremony handlers themselves are not part of
// this service yet; only the key material and relying-party identity are
// assembled here.
package webauthn

import (
	"fmt"
	"net/url"

	"github.com/go-webauthn/webauthn/webauthn"

	"cfszone_connect/magic_idp/internal/config"
)

// New builds the relying party from the external URL. The RP ID is the
// bare host; the full origin goes into the allowed-origins list.
func New(cfg config.Config) (*webauthn.WebAuthn, error) {
	origin := cfg.ExternalURL
	if origin == "" {
		origin = fmt.Sprintf("http://%s:%s", cfg.ListenHost, cfg.ListenPort)
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Hostname() == "" {
		return nil, fmt.Errorf("invalid webauthn origin %q", origin)
	}
	return webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.Title,
		RPID:          parsed.Hostname(),
		RPOrigins:     []string{origin},
	})
}
