// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymkeeper/retention-engine/pkg/member"
	"github.com/gymkeeper/retention-engine/pkg/tenant"
)

var testNow = time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "retention.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTenant(t *testing.T, s *Store, id string) {
	t.Helper()
	require.NoError(t, s.Tenants().Create(context.Background(), &tenant.Tenant{
		ID:                id,
		Name:              "Iron Temple",
		Timezone:          "America/New_York",
		AutoInterventions: true,
		CreatedAt:         testNow,
	}))
}

func TestOpen_MigrationIsIdempotent(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}

func TestTenants_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	seedTenant(t, s, "t-1")

	got, err := s.Tenants().Get(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Iron Temple", got.Name)
	assert.Equal(t, "America/New_York", got.Timezone)
	assert.True(t, got.AutoInterventions)

	all, err := s.Tenants().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTenants_GetMissing(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.Tenants().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestMembers_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	seedTenant(t, s, "t-1")

	lastVisit := testNow.AddDate(0, 0, -3)
	snap := &member.Snapshot{
		ID:        "m-1",
		TenantID:  "t-1",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Contact:   member.Contact{Email: "ada@example.com", Phone: "+15551234"},
		Status:    member.StatusActive,
		JoinedAt:  testNow.AddDate(0, 0, -90),
		Visits: []time.Time{
			testNow.AddDate(0, 0, -10),
			lastVisit,
		},
		LastVisitAt: &lastVisit,
	}
	require.NoError(t, s.Members().AddMember(context.Background(), snap))

	got, err := s.Members().GetMember(context.Background(), "t-1", "m-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FirstName)
	assert.Equal(t, "ada@example.com", got.Contact.Email)
	require.NotNil(t, got.LastVisitAt)
	assert.True(t, got.LastVisitAt.Equal(lastVisit))
	assert.Len(t, got.Visits, 2)

	list, err := s.Members().ListMembers(context.Background(), "t-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Visits, 2)

	_, err = s.Members().GetMember(context.Background(), "t-1", "missing")
	assert.ErrorIs(t, err, ErrMemberNotFound)
}
