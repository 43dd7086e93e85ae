// Package websession names the values the cookie session may carry: the
// session token code and a pending authorize request stashed across the
// login redirect. Mutations are buffered; callers must Save once per
// request after the last change.
package websession

import (
	"github.com/gin-contrib/sessions"
)

// CookieName is the browser session cookie written by the middleware.
const CookieName = "magicidp"

const (
	codeKey    = "session"
	pendingKey = "oidc_authorize"
)

// Code returns the session token code carried by the cookie, if any.
func Code(s sessions.Session) string {
	value, _ := s.Get(codeKey).(string)
	return value
}

func SetCode(s sessions.Session, code string) {
	s.Set(codeKey, code)
}

// StashPending parks an encoded authorize request so it survives the
// login redirect.
func StashPending(s sessions.Session, encoded string) {
	s.Set(pendingKey, encoded)
}

// ConsumePending removes and returns the parked authorize request. It is
// a single-shot read: the value is gone whether or not the caller manages
// to complete the flow.
func ConsumePending(s sessions.Session) (string, bool) {
	value, ok := s.Get(pendingKey).(string)
	if !ok || value == "" {
		return "", false
	}
	s.Delete(pendingKey)
	return value, true
}
