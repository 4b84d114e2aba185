// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gymkeeper/retention-engine/pkg/member"
)

// ErrMemberNotFound is returned when a member does not exist.
var ErrMemberNotFound = errors.New("member not found")

// Members adapts the store to member.EngagementStore. The engine reads this
// data only; member CRUD lives with the surrounding product.
type Members struct {
	store *Store
}

// Members returns the member.EngagementStore view of this database.
func (s *Store) Members() *Members {
	return &Members{store: s}
}

func (m *Members) ListMembers(ctx context.Context, tenantID string) ([]member.Snapshot, error) {
	rows, err := m.store.DB.QueryContext(ctx,
		`SELECT id, tenant_id, first_name, last_name, email, phone, status, joined_at, last_visit_at
		 FROM members WHERE tenant_id = ? ORDER BY id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var out []member.Snapshot
	for rows.Next() {
		snap, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		visits, err := m.visits(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Visits = visits
	}
	return out, nil
}

func (m *Members) GetMember(ctx context.Context, tenantID, memberID string) (*member.Snapshot, error) {
	rows, err := m.store.DB.QueryContext(ctx,
		`SELECT id, tenant_id, first_name, last_name, email, phone, status, joined_at, last_visit_at
		 FROM members WHERE tenant_id = ? AND id = ?`, tenantID, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrMemberNotFound
	}
	snap, err := scanMember(rows)
	if err != nil {
		return nil, err
	}

	visits, err := m.visits(ctx, snap.ID)
	if err != nil {
		return nil, err
	}
	snap.Visits = visits
	return snap, nil
}

// AddMember inserts a member record with visit history. Used by seeding and
// tests; the production write path is the surrounding product's import flow.
func (m *Members) AddMember(ctx context.Context, snap *member.Snapshot) error {
	var lastVisit any
	if snap.LastVisitAt != nil {
		lastVisit = toDB(*snap.LastVisitAt)
	}
	_, err := m.store.DB.ExecContext(ctx,
		`INSERT INTO members(id, tenant_id, first_name, last_name, email, phone, status, joined_at, last_visit_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		snap.ID, snap.TenantID, snap.FirstName, snap.LastName,
		snap.Contact.Email, snap.Contact.Phone, string(snap.Status), toDB(snap.JoinedAt), lastVisit)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	for _, v := range snap.Visits {
		if _, err := m.store.DB.ExecContext(ctx,
			`INSERT INTO member_visits(member_id, visited_at) VALUES (?,?)`, snap.ID, toDB(v)); err != nil {
			return fmt.Errorf("failed to insert visit: %w", err)
		}
	}
	return nil
}

func (m *Members) visits(ctx context.Context, memberID string) ([]time.Time, error) {
	rows, err := m.store.DB.QueryContext(ctx,
		`SELECT visited_at FROM member_visits WHERE member_id = ? ORDER BY visited_at`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	defer rows.Close()

	var visits []time.Time
	for rows.Next() {
		var v time.Time
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func scanMember(rows *sql.Rows) (*member.Snapshot, error) {
	var snap member.Snapshot
	var status string
	var joined, lastVisit sql.NullTime
	if err := rows.Scan(&snap.ID, &snap.TenantID, &snap.FirstName, &snap.LastName,
		&snap.Contact.Email, &snap.Contact.Phone, &status, &joined, &lastVisit); err != nil {
		return nil, fmt.Errorf("failed to scan member: %w", err)
	}
	snap.Status = member.Status(status)
	if joined.Valid {
		snap.JoinedAt = joined.Time
	}
	if lastVisit.Valid {
		t := lastVisit.Time
		snap.LastVisitAt = &t
	}
	return &snap, nil
}
