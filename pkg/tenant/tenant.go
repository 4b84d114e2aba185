package tenant

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Tenant is one gym operator account.
type Tenant struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Timezone          string    `json:"timezone"` // IANA name, e.g. "America/New_York"
	AutoInterventions bool      `json:"autoInterventions"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Location resolves the tenant's timezone.
// Falls back to UTC for missing or invalid timezone names so that a bad
// tenant record cannot break a scheduling pass.
func (t *Tenant) Location() *time.Location {
	if t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		logrus.Warnf("tenant %s has invalid timezone %q, falling back to UTC", t.ID, t.Timezone)
		return time.UTC
	}
	return loc
}

// Store provides access to tenant records.
type Store interface {
	List(ctx context.Context) ([]Tenant, error)
	Get(ctx context.Context, id string) (*Tenant, error)
	Create(ctx context.Context, t *Tenant) error
}
