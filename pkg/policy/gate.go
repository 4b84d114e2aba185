// Package policy enforces the messaging-policy envelope: per-play cooldowns
// and the per-member weekly frequency cap. Quiet hours are evaluated at send
// time by the lifecycle manager, not here, since held interventions are
// deferred rather than suppressed.
package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gymkeeper/retention-engine/pkg/intervention"
	"github.com/gymkeeper/retention-engine/pkg/play"
)

// Gate filters candidates through the messaging policy.
// A policy violation is not an error: the candidate is simply excluded.
type Gate struct {
	store intervention.Store
	clock func() time.Time
}

// NewGate creates a policy gate backed by the intervention history store.
// clock may be nil, in which case time.Now is used.
func NewGate(store intervention.Store, clock func() time.Time) *Gate {
	if clock == nil {
		clock = time.Now
	}
	return &Gate{store: store, clock: clock}
}

// Allow reports whether a new intervention for (member, play) is permitted.
// When denied it returns the policy reason for logging; the reason is never
// surfaced to any caller.
func (g *Gate) Allow(ctx context.Context, tenantID, memberID string, p *play.Play) (bool, string, error) {
	now := g.clock()

	// Per-play cooldown window.
	if p.CooldownDays > 0 {
		last, err := g.store.LatestForPlay(ctx, tenantID, memberID, p.ID)
		if err != nil && !errors.Is(err, intervention.ErrNotFound) {
			return false, "", fmt.Errorf("cooldown lookup failed: %w", err)
		}
		if last != nil {
			cooldownEnd := last.CreatedAt.AddDate(0, 0, p.CooldownDays)
			if now.Before(cooldownEnd) {
				reason := fmt.Sprintf("play cooldown until %s", cooldownEnd.Format(time.RFC3339))
				logrus.Debugf("member %s excluded from play %s: %s", memberID, p.ID, reason)
				return false, reason, nil
			}
		}
	}

	// Per-member weekly cap across all plays.
	weekAgo := now.AddDate(0, 0, -7)
	count, err := g.store.CountForMemberSince(ctx, tenantID, memberID, weekAgo)
	if err != nil {
		return false, "", fmt.Errorf("frequency cap lookup failed: %w", err)
	}
	if count >= p.MaxPerMemberWeek {
		reason := fmt.Sprintf("weekly cap reached (%d/%d)", count, p.MaxPerMemberWeek)
		logrus.Debugf("member %s excluded from play %s: %s", memberID, p.ID, reason)
		return false, reason, nil
	}

	return true, "", nil
}
