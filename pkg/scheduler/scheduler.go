// Package scheduler orchestrates one daily intervention pass per tenant:
// match -> gate -> render -> lifecycle -> dispatch.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gymkeeper/retention-engine/internal/metrics"
	"github.com/gymkeeper/retention-engine/pkg/intervention"
	"github.com/gymkeeper/retention-engine/pkg/matcher"
	"github.com/gymkeeper/retention-engine/pkg/member"
	"github.com/gymkeeper/retention-engine/pkg/play"
	"github.com/gymkeeper/retention-engine/pkg/policy"
	"github.com/gymkeeper/retention-engine/pkg/render"
	"github.com/gymkeeper/retention-engine/pkg/tenant"
)

const tracerName = "retention-scheduler"

// Result summarizes one tenant's scheduler pass.
type Result struct {
	TenantID string   `json:"tenantId"`
	Created  int      `json:"created"`
	Sent     int      `json:"sent"`
	Errors   []string `json:"errors"`
}

// RunRecord is the advisory marker for one (tenant, day) pass.
type RunRecord struct {
	TenantID   string    `json:"tenantId"`
	Day        string    `json:"day"` // tenant-local YYYY-MM-DD
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Created    int       `json:"created"`
	Sent       int       `json:"sent"`
	Errors     int       `json:"errors"`
}

// RunStore records daily run markers. The marker is advisory only; the hard
// idempotency guarantee is the per-(member, play, day) existing-row check.
type RunStore interface {
	LastRun(ctx context.Context, tenantID, day string) (*RunRecord, error)
	RecordRun(ctx context.Context, rec *RunRecord) error
}

// Scheduler runs one full intervention pass for a tenant. It is invoked by
// an external trigger (cron), not a long-lived loop, and is safe to re-invoke
// for the same day.
type Scheduler struct {
	tenants   tenant.Store
	members   member.EngagementStore
	plays     play.Store
	store     intervention.Store
	gate      *policy.Gate
	matcher   *matcher.Matcher
	lifecycle *intervention.Manager
	runs      RunStore
	workers   int
	clock     func() time.Time
}

// Config wires the scheduler's collaborators.
type Config struct {
	Tenants   tenant.Store
	Members   member.EngagementStore
	Plays     play.Store
	Store     intervention.Store
	Gate      *policy.Gate
	Matcher   *matcher.Matcher
	Lifecycle *intervention.Manager
	Runs      RunStore
	Workers   int
	Clock     func() time.Time
}

// New creates a scheduler. Workers defaults to 4; Clock defaults to time.Now.
func New(cfg Config) *Scheduler {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{
		tenants:   cfg.Tenants,
		members:   cfg.Members,
		plays:     cfg.Plays,
		store:     cfg.Store,
		gate:      cfg.Gate,
		matcher:   cfg.Matcher,
		lifecycle: cfg.Lifecycle,
		runs:      cfg.Runs,
		workers:   workers,
		clock:     clock,
	}
}

// RunAll runs one pass for every tenant with auto-interventions enabled.
// One tenant's failure never prevents the others' runs; only a failure to
// list the tenants themselves is an error, since then no pass ran at all.
func (s *Scheduler) RunAll(ctx context.Context, forceApproval bool) ([]Result, error) {
	tenants, err := s.tenants.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	var results []Result
	for i := range tenants {
		t := tenants[i]
		if !t.AutoInterventions {
			logrus.Debugf("tenant %s has auto-interventions disabled, skipping", t.ID)
			continue
		}
		results = append(results, s.RunTenant(ctx, &t, forceApproval))
	}

	return results, nil
}

// RunTenant runs one full pass for a single tenant.
func (s *Scheduler) RunTenant(ctx context.Context, t *tenant.Tenant, forceApproval bool) Result {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "scheduler.RunTenant")
	span.SetAttributes(attribute.String("tenant.id", t.ID))
	defer span.End()

	result := Result{TenantID: t.ID}
	loc := t.Location()
	now := s.clock()
	day := now.In(loc).Format("2006-01-02")
	startedAt := now

	if s.runs != nil {
		if prev, err := s.runs.LastRun(ctx, t.ID, day); err != nil {
			logrus.Warnf("tenant %s: run marker lookup failed: %v", t.ID, err)
		} else if prev != nil {
			logrus.Infof("tenant %s: re-running pass for %s (previous run created %d)", t.ID, day, prev.Created)
		}
	}

	// Dispatch interventions previously held for quiet hours before
	// proposing new ones, so a held row for today counts toward caps.
	s.flushHeld(ctx, t, &result)

	plays, err := s.plays.List(ctx, t.ID, false)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to list plays: %v", err))
		return result
	}
	members, err := s.members.ListMembers(ctx, t.ID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to list members: %v", err))
		return result
	}

	candidates := s.matcher.Match(members, plays, now)
	logrus.Infof("tenant %s: %d candidates from %d members x %d plays",
		t.ID, len(candidates), len(members), len(plays))

	// Bounded worker pool. Each candidate is independent: idempotency is
	// scoped to its (member, play, day) key, so workers never contend on
	// the same row.
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		work = make(chan matcher.Candidate)
	)

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range work {
				created, sent, err := s.process(ctx, t, &cand, loc, now, forceApproval)
				mu.Lock()
				if created {
					result.Created++
				}
				if sent {
					result.Sent++
				}
				if err != nil {
					result.Errors = append(result.Errors,
						fmt.Sprintf("member %s play %s: %v", cand.Member.ID, cand.Play.ID, err))
				}
				mu.Unlock()
			}
		}()
	}

	for _, cand := range candidates {
		work <- cand
	}
	close(work)
	wg.Wait()

	if s.runs != nil {
		rec := &RunRecord{
			TenantID:   t.ID,
			Day:        day,
			StartedAt:  startedAt,
			FinishedAt: s.clock(),
			Created:    result.Created,
			Sent:       result.Sent,
			Errors:     len(result.Errors),
		}
		if err := s.runs.RecordRun(ctx, rec); err != nil {
			logrus.Warnf("tenant %s: failed to record run marker: %v", t.ID, err)
		}
	}

	metrics.SchedulerRuns.WithLabelValues(t.ID).Inc()
	logrus.Infof("tenant %s: pass complete, created=%d sent=%d errors=%d",
		t.ID, result.Created, result.Sent, len(result.Errors))
	return result
}

// process takes one candidate through gate -> render -> create -> advance.
// Returns whether a row was created and whether it reached SENT. Dispatch
// failures are reported but must not abort the batch; the caller records
// them per member.
func (s *Scheduler) process(ctx context.Context, t *tenant.Tenant, cand *matcher.Candidate, loc *time.Location, now time.Time, forceApproval bool) (bool, bool, error) {
	localDay := now.In(loc)
	dayStart := time.Date(localDay.Year(), localDay.Month(), localDay.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	// Daily idempotency: at most one intervention per (member, play) pair
	// per tenant-local day, re-checked here before insert.
	exists, err := s.store.ExistsForDay(ctx, t.ID, cand.Member.ID, cand.Play.ID, dayStart, dayEnd)
	if err != nil {
		return false, false, fmt.Errorf("idempotency check failed: %w", err)
	}
	if exists {
		logrus.Debugf("member %s already has an intervention for play %s today", cand.Member.ID, cand.Play.ID)
		return false, false, nil
	}

	allowed, reason, err := s.gate.Allow(ctx, t.ID, cand.Member.ID, &cand.Play)
	if err != nil {
		return false, false, err
	}
	if !allowed {
		// Policy violations are exclusions, not errors.
		logrus.Debugf("member %s excluded from play %s: %s", cand.Member.ID, cand.Play.ID, reason)
		return false, false, nil
	}

	vars := render.MemberVars(&cand.Member, t.Name, cand.Reason, now)
	subject, body, err := render.Message(cand.Play.Subject, cand.Play.Body, vars)
	if err != nil {
		// Rendering errors abort this intervention only.
		return false, false, fmt.Errorf("render failed: %w", err)
	}

	iv := &intervention.Intervention{
		TenantID:  t.ID,
		MemberID:  cand.Member.ID,
		PlayID:    cand.Play.ID,
		Channel:   cand.Channel,
		Reason:    cand.Reason,
		Subject:   subject,
		Body:      body,
		Recipient: cand.Member.Address(cand.Channel),
	}
	if err := s.lifecycle.CreateCandidate(ctx, iv); err != nil {
		return false, false, err
	}

	if err := s.lifecycle.Advance(ctx, iv, &cand.Play, loc, forceApproval); err != nil {
		return true, false, err
	}

	return true, iv.Status == intervention.StatusSent, nil
}

// flushHeld dispatches SCHEDULED interventions whose quiet-hours hold has
// expired.
func (s *Scheduler) flushHeld(ctx context.Context, t *tenant.Tenant, result *Result) {
	due, err := s.store.ListDue(ctx, t.ID, s.clock())
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to list held interventions: %v", err))
		return
	}

	for i := range due {
		iv := due[i]
		if err := s.lifecycle.Dispatch(ctx, &iv); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("held intervention %s: %v", iv.ID, err))
			continue
		}
		result.Sent++
	}

	if len(due) > 0 {
		logrus.Infof("tenant %s: flushed %d held interventions", t.ID, len(due))
	}
}
