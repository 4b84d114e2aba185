package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gymkeeper/retention-engine/pkg/channel"
	"github.com/gymkeeper/retention-engine/pkg/intervention"
	"github.com/gymkeeper/retention-engine/pkg/intervention/mock"
	"github.com/gymkeeper/retention-engine/pkg/matcher"
	"github.com/gymkeeper/retention-engine/pkg/member"
	"github.com/gymkeeper/retention-engine/pkg/play"
	"github.com/gymkeeper/retention-engine/pkg/policy"
	"github.com/gymkeeper/retention-engine/pkg/scheduler"
	"github.com/gymkeeper/retention-engine/pkg/scoring"
	"github.com/gymkeeper/retention-engine/pkg/tenant"
)

var testNow = time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)

type fakeTenantStore struct {
	tenants []tenant.Tenant
	listErr error
}

func (f *fakeTenantStore) List(ctx context.Context) ([]tenant.Tenant, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.tenants, nil
}
func (f *fakeTenantStore) Get(ctx context.Context, id string) (*tenant.Tenant, error) {
	for i := range f.tenants {
		if f.tenants[i].ID == id {
			return &f.tenants[i], nil
		}
	}
	return nil, errors.New("tenant not found")
}
func (f *fakeTenantStore) Create(ctx context.Context, t *tenant.Tenant) error { return nil }

type fakeMemberStore struct {
	members []member.Snapshot
}

func (f *fakeMemberStore) ListMembers(ctx context.Context, tenantID string) ([]member.Snapshot, error) {
	return f.members, nil
}
func (f *fakeMemberStore) GetMember(ctx context.Context, tenantID, memberID string) (*member.Snapshot, error) {
	for i := range f.members {
		if f.members[i].ID == memberID {
			return &f.members[i], nil
		}
	}
	return nil, errors.New("member not found")
}

type fakePlayStore struct {
	plays []play.Play
}

func (f *fakePlayStore) Create(ctx context.Context, p *play.Play) error { return nil }
func (f *fakePlayStore) Update(ctx context.Context, p *play.Play) error { return nil }
func (f *fakePlayStore) Get(ctx context.Context, tenantID, id string) (*play.Play, error) {
	for i := range f.plays {
		if f.plays[i].ID == id {
			return &f.plays[i], nil
		}
	}
	return nil, play.ErrNotFound
}
func (f *fakePlayStore) List(ctx context.Context, tenantID string, includeInactive bool) ([]play.Play, error) {
	return f.plays, nil
}
func (f *fakePlayStore) Delete(ctx context.Context, tenantID, id string) error { return nil }

type fakeRunStore struct {
	mu      sync.Mutex
	records []scheduler.RunRecord
}

func (f *fakeRunStore) LastRun(ctx context.Context, tenantID, day string) (*scheduler.RunRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].TenantID == tenantID && f.records[i].Day == day {
			rec := f.records[i]
			return &rec, nil
		}
	}
	return nil, nil
}

func (f *fakeRunStore) RecordRun(ctx context.Context, rec *scheduler.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *rec)
	return nil
}

type fakeSender struct {
	mu    sync.Mutex
	ch    channel.Channel
	err   error
	sends int
}

func (f *fakeSender) Channel() channel.Channel { return f.ch }
func (f *fakeSender) Send(ctx context.Context, to, subject, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	if f.err != nil {
		return "", f.err
	}
	return "prov-msg-1", nil
}

type env struct {
	scheduler *scheduler.Scheduler
	store     *mock.Store
	sender    *fakeSender
	runs      *fakeRunStore
	tenant    *tenant.Tenant
}

func lapsedMember(id string) member.Snapshot {
	lastVisit := testNow.AddDate(0, 0, -40)
	return member.Snapshot{
		ID:          id,
		TenantID:    "t-1",
		FirstName:   "Ada",
		Status:      member.StatusActive,
		Contact:     member.Contact{Email: id + "@example.com"},
		JoinedAt:    testNow.AddDate(0, 0, -180),
		Visits:      []time.Time{lastVisit},
		LastVisitAt: &lastVisit,
	}
}

func newEnv(t *testing.T, members []member.Snapshot, plays []play.Play) *env {
	t.Helper()

	ten := tenant.Tenant{ID: "t-1", Name: "Iron Temple", Timezone: "UTC", AutoInterventions: true}
	tenants := &fakeTenantStore{tenants: []tenant.Tenant{ten}}
	store := mock.NewStore()
	sender := &fakeSender{ch: channel.Email}
	registry := channel.NewRegistry()
	if err := registry.Register(sender); err != nil {
		t.Fatalf("register sender: %v", err)
	}
	playStore := &fakePlayStore{plays: plays}
	runs := &fakeRunStore{}
	clock := func() time.Time { return testNow }

	m := matcher.New(scoring.DefaultCommitmentConfig(), scoring.DefaultChurnConfig(), nil)
	gate := policy.NewGate(store, clock)
	lifecycle := intervention.NewManager(store, registry, playStore, tenants, clock)

	s := scheduler.New(scheduler.Config{
		Tenants:   tenants,
		Members:   &fakeMemberStore{members: members},
		Plays:     playStore,
		Store:     store,
		Gate:      gate,
		Matcher:   m,
		Lifecycle: lifecycle,
		Runs:      runs,
		Workers:   2,
		Clock:     clock,
	})

	return &env{scheduler: s, store: store, sender: sender, runs: runs, tenant: &ten}
}

func winBackPlay() play.Play {
	return play.Play{
		ID:               "play-1",
		TenantID:         "t-1",
		Name:             "Win-back nudge",
		Active:           true,
		Trigger:          play.TriggerDailyBatch,
		MinRiskScore:     70,
		Channels:         []channel.Channel{channel.Email},
		QuietHoursStart:  "21:00",
		QuietHoursEnd:    "08:00",
		MaxPerMemberWeek: 2,
		CooldownDays:     7,
		Subject:          "We miss you, {{first_name}}",
		Body:             "Come back to {{gym_name}}!",
	}
}

func TestRunTenant_FullPass(t *testing.T) {
	e := newEnv(t, []member.Snapshot{lapsedMember("m-1")}, []play.Play{winBackPlay()})

	result := e.scheduler.RunTenant(context.Background(), e.tenant, false)

	if len(result.Errors) != 0 {
		t.Fatalf("errors: %v", result.Errors)
	}
	if result.Created != 1 || result.Sent != 1 {
		t.Fatalf("created=%d sent=%d, expected 1/1", result.Created, result.Sent)
	}

	rows, _, err := e.store.List(context.Background(), intervention.Filter{TenantID: "t-1"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows", len(rows))
	}
	iv := rows[0]
	if iv.Status != intervention.StatusSent {
		t.Errorf("status = %s, expected SENT", iv.Status)
	}
	if iv.ProviderMessageID != "prov-msg-1" {
		t.Errorf("provider message id = %q", iv.ProviderMessageID)
	}
	if iv.Subject != "We miss you, Ada" {
		t.Errorf("subject = %q", iv.Subject)
	}
	if iv.Body != "Come back to Iron Temple!" {
		t.Errorf("body = %q", iv.Body)
	}

	if len(e.runs.records) != 1 || e.runs.records[0].Created != 1 {
		t.Errorf("run marker = %+v", e.runs.records)
	}
}

func TestRunTenant_SecondRunIsIdempotent(t *testing.T) {
	e := newEnv(t, []member.Snapshot{lapsedMember("m-1")}, []play.Play{winBackPlay()})

	first := e.scheduler.RunTenant(context.Background(), e.tenant, false)
	second := e.scheduler.RunTenant(context.Background(), e.tenant, false)

	if first.Created != 1 {
		t.Fatalf("first run created %d", first.Created)
	}
	if second.Created != 0 || second.Sent != 0 {
		t.Errorf("second run created=%d sent=%d, expected 0/0", second.Created, second.Sent)
	}
	if e.sender.sends != 1 {
		t.Errorf("sender invoked %d times across both runs", e.sender.sends)
	}
}

func TestRunTenant_ForceApprovalParks(t *testing.T) {
	e := newEnv(t, []member.Snapshot{lapsedMember("m-1")}, []play.Play{winBackPlay()})

	result := e.scheduler.RunTenant(context.Background(), e.tenant, true)

	if result.Created != 1 || result.Sent != 0 {
		t.Fatalf("created=%d sent=%d, expected 1/0", result.Created, result.Sent)
	}
	rows, _, _ := e.store.List(context.Background(), intervention.Filter{TenantID: "t-1"})
	if rows[0].Status != intervention.StatusPendingApproval {
		t.Errorf("status = %s, expected PENDING_APPROVAL", rows[0].Status)
	}
	if e.sender.sends != 0 {
		t.Errorf("sender invoked %d times despite forced approval", e.sender.sends)
	}
}

func TestRunTenant_DispatchFailureContained(t *testing.T) {
	members := []member.Snapshot{lapsedMember("m-1"), lapsedMember("m-2")}
	e := newEnv(t, members, []play.Play{winBackPlay()})
	e.sender.err = errors.New("provider down")

	result := e.scheduler.RunTenant(context.Background(), e.tenant, false)

	if result.Created != 2 {
		t.Errorf("created = %d, expected both candidates created", result.Created)
	}
	if result.Sent != 0 {
		t.Errorf("sent = %d", result.Sent)
	}
	if len(result.Errors) != 2 {
		t.Errorf("errors = %v, expected one per member", result.Errors)
	}

	rows, _, _ := e.store.List(context.Background(), intervention.Filter{TenantID: "t-1"})
	for _, iv := range rows {
		if iv.Status != intervention.StatusFailed {
			t.Errorf("intervention %s status = %s, expected FAILED", iv.ID, iv.Status)
		}
	}
}

func TestRunTenant_FlushesHeldInterventions(t *testing.T) {
	e := newEnv(t, nil, []play.Play{winBackPlay()})

	// A quiet-hours hold from the morning whose release time has passed.
	next := testNow.Add(-time.Hour)
	held := &intervention.Intervention{
		ID:            "iv-held",
		TenantID:      "t-1",
		MemberID:      "m-1",
		PlayID:        "play-1",
		Channel:       channel.Email,
		Status:        intervention.StatusScheduled,
		Recipient:     "m-1@example.com",
		NextAttemptAt: &next,
		CreatedAt:     testNow.Add(-6 * time.Hour),
		UpdatedAt:     testNow.Add(-6 * time.Hour),
	}
	if err := e.store.Insert(context.Background(), held); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	result := e.scheduler.RunTenant(context.Background(), e.tenant, false)

	if result.Sent != 1 {
		t.Fatalf("sent = %d, errors = %v", result.Sent, result.Errors)
	}
	iv, _ := e.store.Get(context.Background(), "iv-held")
	if iv.Status != intervention.StatusSent {
		t.Errorf("held intervention status = %s, expected SENT", iv.Status)
	}
}

func TestRunAll_SkipsDisabledTenants(t *testing.T) {
	e := newEnv(t, []member.Snapshot{lapsedMember("m-1")}, []play.Play{winBackPlay()})

	disabled := tenant.Tenant{ID: "t-2", Name: "Quiet Gym", Timezone: "UTC", AutoInterventions: false}
	tenants := &fakeTenantStore{tenants: []tenant.Tenant{*e.tenant, disabled}}

	// Rebuild the scheduler with both tenants in the store.
	s := scheduler.New(scheduler.Config{
		Tenants:   tenants,
		Members:   &fakeMemberStore{members: []member.Snapshot{lapsedMember("m-1")}},
		Plays:     &fakePlayStore{plays: []play.Play{winBackPlay()}},
		Store:     e.store,
		Gate:      policy.NewGate(e.store, func() time.Time { return testNow }),
		Matcher:   matcher.New(scoring.DefaultCommitmentConfig(), scoring.DefaultChurnConfig(), nil),
		Lifecycle: intervention.NewManager(e.store, mustRegistry(t, e.sender), &fakePlayStore{plays: []play.Play{winBackPlay()}}, tenants, func() time.Time { return testNow }),
		Runs:      e.runs,
		Workers:   2,
		Clock:     func() time.Time { return testNow },
	})

	results, err := s.RunAll(context.Background(), false)

	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(results) != 1 || results[0].TenantID != "t-1" {
		t.Errorf("results = %+v, expected only the enabled tenant", results)
	}
}

func TestRunAll_TenantListFailure(t *testing.T) {
	store := mock.NewStore()
	clock := func() time.Time { return testNow }
	tenants := &fakeTenantStore{listErr: errors.New("store unreachable")}

	s := scheduler.New(scheduler.Config{
		Tenants:   tenants,
		Members:   &fakeMemberStore{},
		Plays:     &fakePlayStore{},
		Store:     store,
		Gate:      policy.NewGate(store, clock),
		Matcher:   matcher.New(scoring.DefaultCommitmentConfig(), scoring.DefaultChurnConfig(), nil),
		Lifecycle: intervention.NewManager(store, mustRegistry(t, &fakeSender{ch: channel.Email}), &fakePlayStore{}, tenants, clock),
		Clock:     clock,
	})

	results, err := s.RunAll(context.Background(), false)
	if err == nil {
		t.Fatal("expected an error when no tenant pass could run")
	}
	if results != nil {
		t.Errorf("results = %+v, expected none", results)
	}
}

func mustRegistry(t *testing.T, s channel.Sender) *channel.Registry {
	t.Helper()
	r := channel.NewRegistry()
	if err := r.Register(s); err != nil {
		t.Fatalf("register sender: %v", err)
	}
	return r
}
