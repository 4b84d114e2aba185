package member

import (
	"context"
	"time"

	"github.com/gymkeeper/retention-engine/pkg/channel"
)

// Status is the membership status as reported by the engagement store.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusCancelled Status = "cancelled"
)

// Contact holds the member's reachable addresses.
type Contact struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Snapshot is a read-only view of one member within a scoring pass.
// The engine never mutates member records, it only scores them.
type Snapshot struct {
	ID          string      `json:"id"`
	TenantID    string      `json:"tenantId"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Contact     Contact     `json:"contact"`
	Status      Status      `json:"status"`
	JoinedAt    time.Time   `json:"joinedAt"`
	LastVisitAt *time.Time  `json:"lastVisitAt,omitempty"`
	Visits      []time.Time `json:"visits"` // ascending visit timestamps
}

// DaysSinceJoined returns whole days between the join date and now.
func (s *Snapshot) DaysSinceJoined(now time.Time) int {
	if s.JoinedAt.IsZero() || now.Before(s.JoinedAt) {
		return 0
	}
	return int(now.Sub(s.JoinedAt).Hours() / 24)
}

// DaysSinceLastVisit returns whole days since the last visit,
// or -1 if the member has never visited.
func (s *Snapshot) DaysSinceLastVisit(now time.Time) int {
	if s.LastVisitAt == nil || s.LastVisitAt.IsZero() {
		return -1
	}
	if now.Before(*s.LastVisitAt) {
		return 0
	}
	return int(now.Sub(*s.LastVisitAt).Hours() / 24)
}

// VisitsSince counts visits at or after the given instant.
func (s *Snapshot) VisitsSince(t time.Time) int {
	count := 0
	for _, v := range s.Visits {
		if !v.Before(t) {
			count++
		}
	}
	return count
}

// VisitsBetween counts visits in the half-open interval [from, to).
func (s *Snapshot) VisitsBetween(from, to time.Time) int {
	count := 0
	for _, v := range s.Visits {
		if !v.Before(from) && v.Before(to) {
			count++
		}
	}
	return count
}

// CanReceive reports whether the member has a usable contact for the channel.
func (s *Snapshot) CanReceive(ch channel.Channel) bool {
	switch ch {
	case channel.Email:
		return s.Contact.Email != ""
	case channel.SMS, channel.WhatsApp:
		return s.Contact.Phone != ""
	default:
		return false
	}
}

// Address returns the contact address to dispatch to for the channel.
func (s *Snapshot) Address(ch channel.Channel) string {
	switch ch {
	case channel.Email:
		return s.Contact.Email
	case channel.SMS, channel.WhatsApp:
		return s.Contact.Phone
	default:
		return ""
	}
}

// EngagementStore exposes per-member visit history and status.
// It is an external collaborator consumed read-only by the engine.
type EngagementStore interface {
	// ListMembers returns all member snapshots for a tenant.
	ListMembers(ctx context.Context, tenantID string) ([]Snapshot, error)

	// GetMember returns one member snapshot.
	GetMember(ctx context.Context, tenantID, memberID string) (*Snapshot, error)
}
