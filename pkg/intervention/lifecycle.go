package intervention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gymkeeper/retention-engine/internal/metrics"
	"github.com/gymkeeper/retention-engine/pkg/channel"
	"github.com/gymkeeper/retention-engine/pkg/play"
	"github.com/gymkeeper/retention-engine/pkg/tenant"
)

// Manager owns every intervention state change from candidate creation
// through the terminal states. All transitions funnel through the Transition
// table and the store's status-preconditioned update.
type Manager struct {
	store   Store
	senders *channel.Registry
	plays   play.Store
	tenants tenant.Store
	clock   func() time.Time
}

// NewManager creates a lifecycle manager.
// clock may be nil, in which case time.Now is used.
func NewManager(store Store, senders *channel.Registry, plays play.Store, tenants tenant.Store, clock func() time.Time) *Manager {
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		store:   store,
		senders: senders,
		plays:   plays,
		tenants: tenants,
		clock:   clock,
	}
}

// CreateCandidate persists a new intervention in the CANDIDATE state.
// The caller has already matched, gated and rendered it.
func (m *Manager) CreateCandidate(ctx context.Context, iv *Intervention) error {
	now := m.clock()

	if iv.ID == "" {
		iv.ID = uuid.NewString()
	}
	iv.Status = StatusCandidate
	iv.CreatedAt = now
	iv.UpdatedAt = now

	if err := m.store.Insert(ctx, iv); err != nil {
		return fmt.Errorf("failed to insert candidate: %w", err)
	}

	metrics.InterventionsCreated.WithLabelValues(iv.TenantID).Inc()
	logrus.Infof("created intervention %s (member=%s play=%s channel=%s)",
		iv.ID, iv.MemberID, iv.PlayID, iv.Channel)
	return nil
}

// Advance routes a fresh CANDIDATE either into approval or toward dispatch.
//
// With approval required (by the play or the run's force-approval flag) the
// intervention parks at PENDING_APPROVAL. Otherwise it becomes SCHEDULED and
// is dispatched immediately, unless the tenant-local send time falls inside
// the play's quiet hours, in which case it is held as SCHEDULED with the next
// allowed send time recorded.
func (m *Manager) Advance(ctx context.Context, iv *Intervention, p *play.Play, loc *time.Location, forceApproval bool) error {
	if p.RequiresApproval || forceApproval {
		if err := m.transition(ctx, iv, StatusPendingApproval, nil); err != nil {
			return err
		}
		logrus.Infof("intervention %s parked for approval", iv.ID)
		return nil
	}

	local := m.clock().In(loc)
	if p.InQuietHours(local) {
		next := p.NextAllowedSend(local)
		if err := m.transition(ctx, iv, StatusScheduled, func(v *Intervention) {
			v.NextAttemptAt = &next
		}); err != nil {
			return err
		}
		logrus.Infof("intervention %s held for quiet hours until %s", iv.ID, next.Format(time.RFC3339))
		return nil
	}

	if err := m.transition(ctx, iv, StatusScheduled, nil); err != nil {
		return err
	}
	return m.Dispatch(ctx, iv)
}

// Dispatch sends a SCHEDULED intervention through its channel sender.
// Adapter success yields SENT with the provider message id recorded; adapter
// failure is terminal for this intervention (FAILED, no retry) and the error
// is returned so the caller can count it without aborting its batch.
func (m *Manager) Dispatch(ctx context.Context, iv *Intervention) error {
	if iv.Status != StatusScheduled {
		return fmt.Errorf("%w: expected %s, got %s", ErrStatusConflict, StatusScheduled, iv.Status)
	}

	sender := m.senders.Get(iv.Channel)
	if sender == nil {
		err := fmt.Errorf("no sender registered for channel %s", iv.Channel)
		metrics.DispatchFailures.WithLabelValues(string(iv.Channel)).Inc()
		if ferr := m.transition(ctx, iv, StatusFailed, func(v *Intervention) {
			v.Reason = v.Reason + "; dispatch failed: " + err.Error()
		}); ferr != nil {
			logrus.Errorf("failed to mark intervention %s failed: %v", iv.ID, ferr)
		}
		return err
	}

	providerID, err := sender.Send(ctx, iv.Recipient, iv.Subject, iv.Body)
	if err != nil {
		metrics.DispatchFailures.WithLabelValues(string(iv.Channel)).Inc()
		logrus.Errorf("dispatch failed for intervention %s on %s: %v", iv.ID, iv.Channel, err)
		if ferr := m.transition(ctx, iv, StatusFailed, func(v *Intervention) {
			v.Reason = v.Reason + "; dispatch failed: " + err.Error()
		}); ferr != nil {
			logrus.Errorf("failed to mark intervention %s failed: %v", iv.ID, ferr)
		}
		return err
	}

	sentAt := m.clock()
	if err := m.transition(ctx, iv, StatusSent, func(v *Intervention) {
		v.ProviderMessageID = providerID
		v.SentAt = &sentAt
		v.NextAttemptAt = nil
	}); err != nil {
		return err
	}

	metrics.InterventionsSent.WithLabelValues(iv.TenantID, string(iv.Channel)).Inc()
	logrus.Infof("intervention %s sent via %s, provider id %s", iv.ID, iv.Channel, providerID)
	return nil
}

// Approve is the operator action advancing PENDING_APPROVAL toward SENT.
// Approving inside the play's quiet hours holds the intervention as
// SCHEDULED; it is dispatched by a later scheduler pass.
func (m *Manager) Approve(ctx context.Context, id string) (*Intervention, error) {
	iv, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if iv.Status != StatusPendingApproval {
		return nil, fmt.Errorf("%w: cannot approve intervention in state %s", ErrStatusConflict, iv.Status)
	}

	loc, p := m.sendContext(ctx, iv)

	if p != nil {
		local := m.clock().In(loc)
		if p.InQuietHours(local) {
			next := p.NextAllowedSend(local)
			if err := m.transition(ctx, iv, StatusScheduled, func(v *Intervention) {
				v.NextAttemptAt = &next
			}); err != nil {
				return nil, err
			}
			logrus.Infof("intervention %s approved, held for quiet hours until %s", iv.ID, next.Format(time.RFC3339))
			return iv, nil
		}
	}

	if err := m.transition(ctx, iv, StatusScheduled, nil); err != nil {
		return nil, err
	}
	if err := m.Dispatch(ctx, iv); err != nil {
		// The intervention is FAILED; surface the updated row, not an
		// opaque error, so the operator sees what happened.
		logrus.Warnf("approve of intervention %s dispatched with error: %v", iv.ID, err)
	}
	return iv, nil
}

// Cancel is the operator action moving any non-terminal intervention to
// CANCELED. Terminal interventions are rejected with ErrStatusConflict.
func (m *Manager) Cancel(ctx context.Context, id string) (*Intervention, error) {
	iv, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if iv.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot cancel intervention in terminal state %s", ErrStatusConflict, iv.Status)
	}

	if err := m.transition(ctx, iv, StatusCanceled, nil); err != nil {
		return nil, err
	}

	logrus.Infof("intervention %s canceled", iv.ID)
	return iv, nil
}

// transition validates the edge, applies the mutation and writes the row
// guarded by the previous status.
func (m *Manager) transition(ctx context.Context, iv *Intervention, to Status, mutate func(*Intervention)) error {
	from := iv.Status
	if err := Transition(from, to); err != nil {
		return err
	}

	iv.Status = to
	iv.UpdatedAt = m.clock()
	if mutate != nil {
		mutate(iv)
	}

	if err := m.store.UpdateStatus(ctx, iv, from); err != nil {
		// Roll back the in-memory copy so callers see the stored state.
		iv.Status = from
		return err
	}
	return nil
}

// sendContext resolves the tenant timezone and play for quiet-hour checks.
// Both lookups degrade gracefully: a missing play or tenant must not block an
// operator action on an otherwise valid intervention.
func (m *Manager) sendContext(ctx context.Context, iv *Intervention) (*time.Location, *play.Play) {
	loc := time.UTC
	if t, err := m.tenants.Get(ctx, iv.TenantID); err == nil {
		loc = t.Location()
	} else {
		logrus.Warnf("tenant %s lookup failed for intervention %s: %v", iv.TenantID, iv.ID, err)
	}

	p, err := m.plays.Get(ctx, iv.TenantID, iv.PlayID)
	if err != nil {
		if !errors.Is(err, play.ErrNotFound) {
			logrus.Warnf("play %s lookup failed for intervention %s: %v", iv.PlayID, iv.ID, err)
		}
		return loc, nil
	}
	return loc, p
}
