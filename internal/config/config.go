package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

type User struct {
	Email    string   `toml:"email"`
	Username string   `toml:"username"`
	Name     string   `toml:"name"`
	Realms   []string `toml:"realms"`
}

type OIDCClient struct {
	ID           string   `toml:"id"`
	Secret       string   `toml:"secret"`
	RedirectURIs []string `toml:"redirect_uris"`
	Realms       []string `toml:"realms"`
}

// File is the operator-managed part of the configuration, loaded once from
// a TOML file at startup and never mutated afterwards.
type File struct {
	Title              string       `toml:"title"`
	AuthURLEmailHeader string       `toml:"auth_url_email_header"`
	AuthURLUserHeader  string       `toml:"auth_url_user_header"`
	AuthURLNameHeader  string       `toml:"auth_url_name_header"`
	Users              []User       `toml:"users"`
	OIDCClients        []OIDCClient `toml:"oidc_clients"`
}

// Env holds process-level settings taken from the environment.
type Env struct {
	ConfigFile       string `env:"CONFIG_FILE"        envDefault:"config.toml"`
	ListenHost       string `env:"LISTEN_HOST"        envDefault:"127.0.0.1"`
	ListenPort       string `env:"LISTEN_PORT"        envDefault:"8080"`
	DatabasePath     string `env:"DATABASE_URL"       envDefault:"database.sqlite3"`
	ExternalURL      string `env:"EXTERNAL_URL"`
	SessionDuration  string `env:"SESSION_DURATION"   envDefault:"1mon"`
	LinkDuration     string `env:"LINK_DURATION"      envDefault:"12h"`
	OIDCCodeDuration string `env:"OIDC_CODE_DURATION" envDefault:"5m"`
}

type Config struct {
	Title              string
	AuthURLEmailHeader string
	AuthURLUserHeader  string
	AuthURLNameHeader  string
	Users              []User
	OIDCClients        []OIDCClient

	ListenHost   string
	ListenPort   string
	DatabasePath string
	ExternalURL  string

	SessionDuration  time.Duration
	LinkDuration     time.Duration
	OIDCCodeDuration time.Duration
}

func Load() (Config, error) {
	e := Env{}
	if err := env.Parse(&e); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	raw, err := os.ReadFile(e.ConfigFile)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", e.ConfigFile, err)
	}
	return build(raw, e)
}

func build(raw []byte, e Env) (Config, error) {
	f := File{}
	if err := toml.Unmarshal(raw, &f); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Config{
		Title:              f.Title,
		AuthURLEmailHeader: f.AuthURLEmailHeader,
		AuthURLUserHeader:  f.AuthURLUserHeader,
		AuthURLNameHeader:  f.AuthURLNameHeader,
		Users:              f.Users,
		OIDCClients:        f.OIDCClients,
		ListenHost:         e.ListenHost,
		ListenPort:         e.ListenPort,
		DatabasePath:       e.DatabasePath,
		ExternalURL:        strings.TrimRight(strings.TrimSpace(e.ExternalURL), "/"),
	}
	if cfg.Title == "" {
		cfg.Title = "Magic IdP"
	}
	if cfg.AuthURLEmailHeader == "" {
		cfg.AuthURLEmailHeader = "X-Auth-Email"
	}
	if cfg.AuthURLUserHeader == "" {
		cfg.AuthURLUserHeader = "X-Auth-User"
	}
	if cfg.AuthURLNameHeader == "" {
		cfg.AuthURLNameHeader = "X-Auth-Name"
	}

	var err error
	if cfg.SessionDuration, err = ParseDuration(e.SessionDuration); err != nil {
		return Config{}, fmt.Errorf("SESSION_DURATION: %w", err)
	}
	if cfg.LinkDuration, err = ParseDuration(e.LinkDuration); err != nil {
		return Config{}, fmt.Errorf("LINK_DURATION: %w", err)
	}
	if cfg.OIDCCodeDuration, err = ParseDuration(e.OIDCCodeDuration); err != nil {
		return Config{}, fmt.Errorf("OIDC_CODE_DURATION: %w", err)
	}
	return cfg, nil
}

// BaseURL derives the externally visible URL for discovery documents and
// token issuers. A configured EXTERNAL_URL wins over anything request-derived.
func (c Config) BaseURL(r *http.Request) string {
	if c.ExternalURL != "" {
		return c.ExternalURL
	}
	scheme := "http"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

func (c Config) ListenAddr() string {
	return c.ListenHost + ":" + c.ListenPort
}
