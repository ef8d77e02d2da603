package identity

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gestio/messagerie/internal/domain"
)

func resolveThrough(t *testing.T, setup func(*http.Request)) (*User, error) {
	t.Helper()

	var got *User
	var gotErr error
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
	setup(req)
	h.ServeHTTP(httptest.NewRecorder(), req)
	return got, gotErr
}

func TestMiddlewareResolvesHeaderRecord(t *testing.T) {
	t.Parallel()

	u, err := resolveThrough(t, func(r *http.Request) {
		r.Header.Set(SessionHeaderName, `{"id": 12, "company": "Acme", "role": "landlord"}`)
	})
	if err != nil {
		t.Fatalf("UserFromContext: %v", err)
	}
	if u.UserID() != "12" || u.Company != "Acme" {
		t.Errorf("unexpected user %+v", u)
	}
	if !u.ScopeToCompany() {
		t.Error("landlord session must be company-scoped")
	}
}

func TestMiddlewareResolvesBase64Cookie(t *testing.T) {
	t.Parallel()

	record := base64.StdEncoding.EncodeToString([]byte(`{"id":"7","role":"director"}`))
	u, err := resolveThrough(t, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: record})
	})
	if err != nil {
		t.Fatalf("UserFromContext: %v", err)
	}
	if u.UserID() != "7" || u.ScopeToCompany() {
		t.Errorf("unexpected user %+v", u)
	}
}

func TestMiddlewareToleratesMissingOrBrokenRecords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(*http.Request)
	}{
		{"no session at all", func(r *http.Request) {}},
		{"garbage header", func(r *http.Request) { r.Header.Set(SessionHeaderName, "{not json") }},
		{"record without id", func(r *http.Request) { r.Header.Set(SessionHeaderName, `{"company":"Acme"}`) }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := resolveThrough(t, tt.setup)
			if !errors.Is(err, ErrIdentityUnavailable) {
				t.Errorf("expected ErrIdentityUnavailable, got %v", err)
			}
		})
	}
}

func TestWithUserRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithUser(context.Background(), &User{ID: "3", Role: domain.RoleManager})
	u, err := UserFromContext(ctx)
	if err != nil {
		t.Fatalf("UserFromContext: %v", err)
	}
	if u.UserID() != "3" {
		t.Errorf("got %q", u.UserID())
	}
}
