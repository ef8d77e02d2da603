// Package domain contains core domain types for the messagerie service.
package domain

import (
	"strings"
)

// Role labels used by the console backend.
const (
	RoleDirector   = "director"
	RoleLandlord   = "landlord"
	RoleManager    = "manager"
	RoleSuperadmin = "superadmin"
)

// DefaultContactName is used for a conversation counterpart the backend
// returned without any usable name.
const DefaultContactName = "User"

// Contact is the canonical record for a person the current user may message,
// aggregated from the roster, privileged-counterpart, and conversation sources.
type Contact struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Company     string `json:"company"`
	UnreadCount int    `json:"unread_count"`
}

// IsPrivileged returns true if the contact carries the platform-level
// privileged role.
func (c *Contact) IsPrivileged() bool {
	return strings.EqualFold(c.Role, RoleSuperadmin)
}

// SortName returns the case-folded name used for canonical ordering.
// Empty names sort last.
func (c *Contact) SortName() string {
	return strings.ToLower(c.Name)
}

// ScopedToCompany reports whether contacts for the given role must be
// restricted to the current user's company. Only landlords are scoped; the
// backend independently enforces the same rule with a 403.
func ScopedToCompany(role string) bool {
	return strings.EqualFold(role, RoleLandlord)
}
