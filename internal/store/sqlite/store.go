// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

// Package sqlite implements the engine's persistence interfaces over a
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Store implements play.Store, tenant.Store, member.EngagementStore and
// intervention.Store over one SQLite database.
type Store struct {
	DB *sql.DB
}

// Open opens (creating if needed) the SQLite database with foreign keys on
// and runs migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// churn under the scheduler's worker pool.
	db.SetMaxOpenConns(1)

	s := &Store{DB: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	logrus.Infof("opened sqlite store at %s", path)
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Ping verifies database connectivity, for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS tenants (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	timezone TEXT NOT NULL DEFAULT 'UTC',
	auto_interventions INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS members (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL REFERENCES tenants(id),
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'active',
	joined_at TIMESTAMP,
	last_visit_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_members_tenant ON members(tenant_id);

CREATE TABLE IF NOT EXISTS member_visits (
	member_id TEXT NOT NULL REFERENCES members(id),
	visited_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_visits_member ON member_visits(member_id, visited_at);

CREATE TABLE IF NOT EXISTS plays (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL REFERENCES tenants(id),
	name TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	trigger_type TEXT NOT NULL DEFAULT 'DAILY_BATCH',
	min_risk_score INTEGER NOT NULL DEFAULT 0,
	channels TEXT NOT NULL,
	requires_approval INTEGER NOT NULL DEFAULT 0,
	quiet_hours_start TEXT NOT NULL DEFAULT '21:00',
	quiet_hours_end TEXT NOT NULL DEFAULT '08:00',
	max_per_member_week INTEGER NOT NULL DEFAULT 2,
	cooldown_days INTEGER NOT NULL DEFAULT 7,
	subject TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	deleted_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_plays_tenant ON plays(tenant_id);

CREATE TABLE IF NOT EXISTS interventions (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL REFERENCES tenants(id),
	member_id TEXT NOT NULL,
	play_id TEXT NOT NULL,
	channel TEXT NOT NULL,
	status TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	subject TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	recipient TEXT NOT NULL DEFAULT '',
	provider_message_id TEXT,
	next_attempt_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	sent_at TIMESTAMP,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interventions_pair ON interventions(tenant_id, member_id, play_id, created_at);
CREATE INDEX IF NOT EXISTS idx_interventions_provider ON interventions(provider_message_id);
CREATE INDEX IF NOT EXISTS idx_interventions_status ON interventions(tenant_id, status);

CREATE TABLE IF NOT EXISTS message_events (
	id TEXT PRIMARY KEY,
	intervention_id TEXT NOT NULL REFERENCES interventions(id),
	type TEXT NOT NULL,
	payload TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_intervention ON message_events(intervention_id, created_at);
`

// Migrate applies the schema. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// toDB normalizes a timestamp for storage. The driver binds time.Time as
// text carrying the value's own UTC offset and SQLite compares those strings
// lexicographically, so every stored or compared literal must share one
// offset.
func toDB(t time.Time) time.Time {
	return t.UTC()
}
