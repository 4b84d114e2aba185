// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gymkeeper/retention-engine/pkg/tenant"
)

// ErrTenantNotFound is returned when a tenant does not exist.
var ErrTenantNotFound = errors.New("tenant not found")

// Tenants adapts the store to tenant.Store.
type Tenants struct {
	store *Store
}

// Tenants returns the tenant.Store view of this database.
func (s *Store) Tenants() *Tenants {
	return &Tenants{store: s}
}

func (t *Tenants) Create(ctx context.Context, tn *tenant.Tenant) error {
	_, err := t.store.DB.ExecContext(ctx,
		`INSERT INTO tenants(id, name, timezone, auto_interventions, created_at) VALUES (?,?,?,?,?)`,
		tn.ID, tn.Name, tn.Timezone, boolToInt(tn.AutoInterventions), toDB(tn.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert tenant: %w", err)
	}
	return nil
}

func (t *Tenants) Get(ctx context.Context, id string) (*tenant.Tenant, error) {
	row := t.store.DB.QueryRowContext(ctx,
		`SELECT id, name, timezone, auto_interventions, created_at FROM tenants WHERE id = ?`, id)

	var tn tenant.Tenant
	var auto int
	err := row.Scan(&tn.ID, &tn.Name, &tn.Timezone, &auto, &tn.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tenant: %w", err)
	}
	tn.AutoInterventions = auto != 0
	return &tn, nil
}

func (t *Tenants) List(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := t.store.DB.QueryContext(ctx,
		`SELECT id, name, timezone, auto_interventions, created_at FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var out []tenant.Tenant
	for rows.Next() {
		var tn tenant.Tenant
		var auto int
		if err := rows.Scan(&tn.ID, &tn.Name, &tn.Timezone, &auto, &tn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tn.AutoInterventions = auto != 0
		out = append(out, tn)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
