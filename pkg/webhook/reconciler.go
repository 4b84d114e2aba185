package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gymkeeper/retention-engine/pkg/intervention"
)

// Reconciler advances intervention state from normalized delivery callbacks.
// It is stateless and safe to invoke concurrently; transitions are idempotent
// and tolerate duplicated or re-ordered events.
type Reconciler struct {
	store intervention.Store
	clock func() time.Time
}

// NewReconciler creates a reconciler.
// clock may be nil, in which case time.Now is used.
func NewReconciler(store intervention.Store, clock func() time.Time) *Reconciler {
	if clock == nil {
		clock = time.Now
	}
	return &Reconciler{store: store, clock: clock}
}

// Apply reconciles one delivery into the matching intervention.
//
// Unknown provider message ids are a successful no-op: webhooks may arrive
// for untracked messages (test traffic) and must not be errors. Replays of an
// already-applied event and terminal-to-terminal transitions are silently
// accepted without any state change or duplicate audit row.
//
// Returns the updated intervention, or nil when nothing changed.
func (r *Reconciler) Apply(ctx context.Context, d Delivery) (*intervention.Intervention, error) {
	iv, err := r.store.GetByProviderMessageID(ctx, d.ProviderMessageID)
	if err != nil {
		if errors.Is(err, intervention.ErrNotFound) {
			logrus.Debugf("webhook for unknown provider message id %s ignored", d.ProviderMessageID)
			return nil, nil
		}
		return nil, fmt.Errorf("intervention lookup failed: %w", err)
	}

	var target intervention.Status
	switch d.Type {
	case intervention.EventDelivered:
		target = intervention.StatusDelivered
	case intervention.EventFailed:
		target = intervention.StatusFailed
	default:
		return nil, fmt.Errorf("unknown delivery event type %q", d.Type)
	}

	if iv.Status == target {
		logrus.Debugf("intervention %s already %s, webhook replay ignored", iv.ID, target)
		return nil, nil
	}
	if iv.Status.Terminal() {
		// A late or re-ordered terminal event must not regress the row.
		logrus.Debugf("intervention %s is terminal (%s), ignoring %s event", iv.ID, iv.Status, d.Type)
		return nil, nil
	}
	if err := intervention.Transition(iv.Status, target); err != nil {
		logrus.Warnf("webhook for intervention %s arrived in state %s, cannot apply %s: %v",
			iv.ID, iv.Status, target, err)
		return nil, nil
	}

	from := iv.Status
	iv.Status = target
	iv.UpdatedAt = r.clock()
	if err := r.store.UpdateStatus(ctx, iv, from); err != nil {
		if errors.Is(err, intervention.ErrStatusConflict) {
			// A concurrent webhook won the race; treat as replay.
			logrus.Debugf("intervention %s changed concurrently, webhook dropped", iv.ID)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update intervention %s: %w", iv.ID, err)
	}

	ev := &intervention.MessageEvent{
		ID:             uuid.NewString(),
		InterventionID: iv.ID,
		Type:           d.Type,
		Payload:        d.Raw,
		CreatedAt:      r.clock(),
	}
	if err := r.store.InsertEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("failed to append message event: %w", err)
	}

	logrus.Infof("intervention %s reconciled to %s from provider callback", iv.ID, target)
	return iv, nil
}
