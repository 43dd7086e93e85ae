package directory

import (
	"strings"

	"cfszone_connect/magic_idp/internal/config"
)

// User is an identity from the static configuration. The running process
// never creates, updates, or deletes users.
type User struct {
	Email    string
	Username string
	Name     string
	Realms   []string
}

// PreferredUsername is what userinfo and forward-auth expose when no alias
// is configured.
func (u User) PreferredUsername() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

type Directory struct {
	byEmail map[string]User
}

func New(cfg config.Config) *Directory {
	byEmail := make(map[string]User, len(cfg.Users))
	for _, entry := range cfg.Users {
		user := User{
			Email:    normalizeEmail(entry.Email),
			Username: entry.Username,
			Name:     entry.Name,
			Realms:   append([]string(nil), entry.Realms...),
		}
		if user.Email == "" {
			continue
		}
		byEmail[user.Email] = user
	}
	return &Directory{byEmail: byEmail}
}

// FindByEmail resolves a user by normalized email. A miss is ordinary
// control flow: callers treat it as authentication failure, not an error.
func (d *Directory) FindByEmail(email string) (User, bool) {
	user, ok := d.byEmail[normalizeEmail(email)]
	return user, ok
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
