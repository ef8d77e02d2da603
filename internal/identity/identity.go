// Package identity resolves the authenticated console user from the
// persisted client-side session record.
package identity

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gestio/messagerie/internal/domain"
)

const (
	// SessionCookieName carries the persisted session record set by the
	// console's auth flow (base64-encoded JSON).
	SessionCookieName = "messagerie_session"

	// SessionHeaderName carries the same record as a raw JSON header for
	// development and test clients.
	SessionHeaderName = "X-Console-User"
)

// ErrIdentityUnavailable signals missing or unparsable session context. It
// blocks sending only; browsing contacts and reading threads still work.
var ErrIdentityUnavailable = errors.New("current user identity unavailable, log in again")

// User is the authenticated console user as recorded by the session
// bootstrap. Only id is mandatory; company drives landlord scoping.
type User struct {
	ID      domain.FlexID `json:"id"`
	Company string        `json:"company"`
	Role    string        `json:"role"`
}

// UserID returns the normalized user id.
func (u *User) UserID() string {
	return domain.NormalizeID(u.ID.String())
}

// ScopeToCompany reports whether the contact list must be restricted to the
// user's company.
func (u *User) ScopeToCompany() bool {
	return domain.ScopedToCompany(u.Role)
}

type contextKey int

const userKey contextKey = iota

// UserFromContext extracts the session user from the request context.
// Returns ErrIdentityUnavailable when the session record was missing or
// unparsable.
func UserFromContext(ctx context.Context) (*User, error) {
	if u, ok := ctx.Value(userKey).(*User); ok && u.UserID() != "" {
		return u, nil
	}
	return nil, ErrIdentityUnavailable
}

// WithUser returns a context carrying the given session user. Used by
// handlers under test and by the middleware below.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func parseRecord(raw string) (*User, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrIdentityUnavailable
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		// Cookie values are base64-wrapped; headers are raw JSON.
		decoded, decErr := base64.StdEncoding.DecodeString(raw)
		if decErr != nil {
			return nil, ErrIdentityUnavailable
		}
		if err := json.Unmarshal(decoded, &u); err != nil {
			return nil, ErrIdentityUnavailable
		}
	}
	if u.UserID() == "" {
		return nil, ErrIdentityUnavailable
	}
	return &u, nil
}

func userFromRequest(r *http.Request) (*User, error) {
	if h := r.Header.Get(SessionHeaderName); h != "" {
		return parseRecord(h)
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return parseRecord(c.Value)
	}
	return nil, ErrIdentityUnavailable
}

// Middleware injects the session user into the request context. An absent or
// unparsable session record is not rejected here: browsing endpoints degrade
// gracefully and only identity-requiring operations fail, with
// ErrIdentityUnavailable, at the point of use.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u, err := userFromRequest(r); err == nil {
				r = r.WithContext(WithUser(r.Context(), u))
			}
			next.ServeHTTP(w, r)
		})
	}
}
