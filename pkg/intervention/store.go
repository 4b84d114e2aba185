package intervention

import (
	"context"
	"errors"
	"time"

	"github.com/gymkeeper/retention-engine/pkg/channel"
)

var (
	// ErrNotFound is returned when an intervention does not exist.
	ErrNotFound = errors.New("intervention not found")

	// ErrStatusConflict is returned when a status-preconditioned update
	// finds the row in a different state than expected.
	ErrStatusConflict = errors.New("intervention status precondition failed")
)

// Filter narrows a List query. Zero values mean "any".
type Filter struct {
	TenantID string
	MemberID string
	Channel  channel.Channel
	Status   Status
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// Store persists interventions and their message events.
//
// UpdateStatus is the only mutation path for existing rows; it performs an
// optimistic-concurrency write guarded by the expected current status so
// concurrent operator actions and webhooks cannot race a row into an illegal
// state.
type Store interface {
	Insert(ctx context.Context, iv *Intervention) error
	Get(ctx context.Context, id string) (*Intervention, error)
	GetByProviderMessageID(ctx context.Context, providerMessageID string) (*Intervention, error)

	// UpdateStatus writes the mutable fields of iv, guarded by
	// "status = from". Returns ErrStatusConflict when no row matched.
	UpdateStatus(ctx context.Context, iv *Intervention, from Status) error

	// ExistsForDay reports whether an intervention for the (member, play)
	// pair was already created on the given tenant-local day. This is the
	// daily idempotency key.
	ExistsForDay(ctx context.Context, tenantID, memberID, playID string, dayStart, dayEnd time.Time) (bool, error)

	// LatestForPlay returns the most recent intervention for the
	// (member, play) pair, or ErrNotFound. Used for cooldown checks.
	LatestForPlay(ctx context.Context, tenantID, memberID, playID string) (*Intervention, error)

	// CountForMemberSince counts interventions for the member across all
	// plays created at or after since. Used for the weekly frequency cap.
	CountForMemberSince(ctx context.Context, tenantID, memberID string, since time.Time) (int, error)

	// ListDue returns SCHEDULED interventions held for quiet hours whose
	// next attempt time has passed.
	ListDue(ctx context.Context, tenantID string, before time.Time) ([]Intervention, error)

	// List returns interventions matching the filter plus the total count
	// ignoring limit/offset.
	List(ctx context.Context, f Filter) ([]Intervention, int, error)

	InsertEvent(ctx context.Context, ev *MessageEvent) error
	ListEvents(ctx context.Context, interventionID string) ([]MessageEvent, error)
}
