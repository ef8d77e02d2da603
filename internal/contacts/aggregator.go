// Package contacts builds the canonical contact list from the three
// overlapping backend sources: the company roster, privileged counterparts,
// and the raw conversation list.
package contacts

import (
	"sort"
	"strings"

	"github.com/gestio/messagerie/internal/backend"
	"github.com/gestio/messagerie/internal/domain"
)

// Input carries the three source feeds plus the current user's identity.
type Input struct {
	Roster        []backend.UserRecord
	Privileged    []backend.UserRecord
	Conversations []backend.ConversationRecord

	CurrentUserID  string
	CurrentCompany string

	// ScopeToCompany restricts the list to the current user's company. It is
	// set for landlords only; the filter mirrors the backend's own 403 rule
	// so cross-company contacts never reach a send attempt.
	ScopeToCompany bool
}

// Aggregate merges the sources into one deduplicated, sorted contact list.
// Records without an id are skipped; the current user is never included. An
// empty result is valid.
func Aggregate(in Input) []domain.Contact {
	selfID := domain.NormalizeID(in.CurrentUserID)
	company := strings.TrimSpace(in.CurrentCompany)

	byID := make(map[string]*domain.Contact)
	var order []string

	insert := func(c domain.Contact) {
		if _, ok := byID[c.UserID]; ok {
			return
		}
		byID[c.UserID] = &c
		order = append(order, c.UserID)
	}

	companyAllowed := func(candidate string) bool {
		if !in.ScopeToCompany {
			return true
		}
		candidate = strings.TrimSpace(candidate)
		return candidate == "" || company == "" || candidate == company
	}

	// Roster seeds the map; it carries the most complete identity fields.
	for _, u := range in.Roster {
		id := domain.NormalizeID(u.ID.String())
		if id == "" || id == selfID {
			continue
		}
		if !companyAllowed(u.Company) {
			continue
		}
		insert(domain.Contact{
			UserID:  id,
			Name:    u.Name,
			Email:   u.Email,
			Role:    u.Role,
			Company: u.Company,
		})
	}

	// Privileged counterparts fill gaps but never overwrite roster identity.
	for _, u := range in.Privileged {
		id := domain.NormalizeID(u.ID.String())
		if id == "" || id == selfID {
			continue
		}
		if _, ok := byID[id]; ok {
			continue
		}
		role := u.Role
		if strings.TrimSpace(role) == "" {
			role = domain.RoleSuperadmin
		}
		insert(domain.Contact{
			UserID:  id,
			Name:    u.Name,
			Email:   u.Email,
			Role:    role,
			Company: u.Company,
		})
	}

	// Conversations contribute unread counts for known contacts and whole
	// records for counterparts absent from the other sources.
	for i := range in.Conversations {
		conv := &in.Conversations[i]
		id := conv.CounterpartID()
		if id == "" || id == selfID {
			continue
		}
		if existing, ok := byID[id]; ok {
			if conv.UnreadCount != nil && *conv.UnreadCount >= 0 {
				existing.UnreadCount = *conv.UnreadCount
			}
			continue
		}
		if !companyAllowed(conv.BestCompany()) {
			continue
		}
		unread := 0
		if conv.UnreadCount != nil && *conv.UnreadCount > 0 {
			unread = *conv.UnreadCount
		}
		insert(domain.Contact{
			UserID:      id,
			Name:        conv.BestName(),
			Email:       conv.BestEmail(),
			Role:        conv.BestRole(),
			Company:     conv.BestCompany(),
			UnreadCount: unread,
		})
	}

	list := make([]domain.Contact, 0, len(order))
	for _, id := range order {
		list = append(list, *byID[id])
	}
	sortContacts(list, in.ScopeToCompany)
	return list
}

// sortContacts orders privileged contacts first (non-scoped roles only), then
// by case-insensitive name ascending; empty names sort last.
func sortContacts(list []domain.Contact, scoped bool) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := &list[i], &list[j]
		if !scoped {
			if a.IsPrivileged() != b.IsPrivileged() {
				return a.IsPrivileged()
			}
		}
		an, bn := a.SortName(), b.SortName()
		if (an == "") != (bn == "") {
			return bn == ""
		}
		return an < bn
	})
}
