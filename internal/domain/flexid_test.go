package domain

import (
	"encoding/json"
	"testing"
)

func TestFlexIDUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"string", `"42"`, "42"},
		{"number", `42`, "42"},
		{"float number", `42.0`, "42.0"},
		{"padded string", `" 42 "`, "42"},
		{"null", `null`, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var id FlexID
			if err := json.Unmarshal([]byte(tt.in), &id); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.in, err)
			}
			if id.String() != tt.want {
				t.Errorf("got %q, want %q", id, tt.want)
			}
		})
	}
}

func TestNormalizeID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"7", "7"},
		{"7.0", "7"},
		{" 7 ", "7"},
		{"abc-9", "abc-9"},
		{"7.5", "7.5"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeID(tt.in); got != tt.want {
			t.Errorf("NormalizeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScopedToCompany(t *testing.T) {
	t.Parallel()

	if !ScopedToCompany(RoleLandlord) {
		t.Error("landlord must be company-scoped")
	}
	if ScopedToCompany(RoleDirector) || ScopedToCompany(RoleManager) || ScopedToCompany(RoleSuperadmin) {
		t.Error("only the landlord role is company-scoped")
	}
}

func TestIsProvisional(t *testing.T) {
	t.Parallel()

	m := ConversationMessage{ID: TempIDPrefix + "abc"}
	if !m.IsProvisional() {
		t.Error("tmp-prefixed id must be provisional")
	}
	m.ID = "1870"
	if m.IsProvisional() {
		t.Error("server id must not be provisional")
	}
}
