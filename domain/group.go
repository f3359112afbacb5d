package domain

import (
	"time"

	"github.com/samber/lo"
)

// Group is read-only from the routing core's point of view.
// Members and admins are maintained by the administration tooling.
type Group struct {
	ID          string
	Name        string
	Description string
	CreatedBy   string
	Members     []string
	Admins      []string
	CreatedAt   time.Time
}

func (g Group) HasMember(userID string) bool {
	return lo.Contains(g.Members, userID)
}

func (g Group) IsAdmin(userID string) bool {
	return lo.Contains(g.Admins, userID)
}
