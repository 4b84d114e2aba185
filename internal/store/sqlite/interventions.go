// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gymkeeper/retention-engine/pkg/channel"
	"github.com/gymkeeper/retention-engine/pkg/intervention"
)

// Interventions adapts the store to intervention.Store.
type Interventions struct {
	store *Store
}

// Interventions returns the intervention.Store view of this database.
func (s *Store) Interventions() *Interventions {
	return &Interventions{store: s}
}

const interventionColumns = `id, tenant_id, member_id, play_id, channel, status, reason,
	subject, body, recipient, provider_message_id, next_attempt_at, created_at, sent_at, updated_at`

func (i *Interventions) Insert(ctx context.Context, iv *intervention.Intervention) error {
	_, err := i.store.DB.ExecContext(ctx,
		`INSERT INTO interventions(`+interventionColumns+`)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		iv.ID, iv.TenantID, iv.MemberID, iv.PlayID, string(iv.Channel), string(iv.Status),
		iv.Reason, iv.Subject, iv.Body, iv.Recipient, nullable(iv.ProviderMessageID),
		nullTime(iv.NextAttemptAt), toDB(iv.CreatedAt), nullTime(iv.SentAt), toDB(iv.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert intervention: %w", err)
	}
	return nil
}

func (i *Interventions) Get(ctx context.Context, id string) (*intervention.Intervention, error) {
	row := i.store.DB.QueryRowContext(ctx,
		`SELECT `+interventionColumns+` FROM interventions WHERE id = ?`, id)
	iv, err := scanIntervention(row.Scan)
	if err == sql.ErrNoRows {
		return nil, intervention.ErrNotFound
	}
	return iv, err
}

func (i *Interventions) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*intervention.Intervention, error) {
	row := i.store.DB.QueryRowContext(ctx,
		`SELECT `+interventionColumns+` FROM interventions WHERE provider_message_id = ?`, providerMessageID)
	iv, err := scanIntervention(row.Scan)
	if err == sql.ErrNoRows {
		return nil, intervention.ErrNotFound
	}
	return iv, err
}

// UpdateStatus writes the mutable fields guarded by the expected current
// status. Zero rows affected means another writer got there first.
func (i *Interventions) UpdateStatus(ctx context.Context, iv *intervention.Intervention, from intervention.Status) error {
	res, err := i.store.DB.ExecContext(ctx,
		`UPDATE interventions
		 SET status=?, reason=?, provider_message_id=?, next_attempt_at=?, sent_at=?, updated_at=?
		 WHERE id=? AND status=?`,
		string(iv.Status), iv.Reason, nullable(iv.ProviderMessageID),
		nullTime(iv.NextAttemptAt), nullTime(iv.SentAt), toDB(iv.UpdatedAt),
		iv.ID, string(from))
	if err != nil {
		return fmt.Errorf("failed to update intervention status: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return intervention.ErrStatusConflict
	}
	return nil
}

func (i *Interventions) ExistsForDay(ctx context.Context, tenantID, memberID, playID string, dayStart, dayEnd time.Time) (bool, error) {
	var n int
	err := i.store.DB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM interventions
		 WHERE tenant_id=? AND member_id=? AND play_id=? AND created_at >= ? AND created_at < ?`,
		tenantID, memberID, playID, toDB(dayStart), toDB(dayEnd)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check daily idempotency: %w", err)
	}
	return n > 0, nil
}

func (i *Interventions) LatestForPlay(ctx context.Context, tenantID, memberID, playID string) (*intervention.Intervention, error) {
	row := i.store.DB.QueryRowContext(ctx,
		`SELECT `+interventionColumns+` FROM interventions
		 WHERE tenant_id=? AND member_id=? AND play_id=?
		 ORDER BY created_at DESC LIMIT 1`, tenantID, memberID, playID)
	iv, err := scanIntervention(row.Scan)
	if err == sql.ErrNoRows {
		return nil, intervention.ErrNotFound
	}
	return iv, err
}

func (i *Interventions) CountForMemberSince(ctx context.Context, tenantID, memberID string, since time.Time) (int, error) {
	var n int
	err := i.store.DB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM interventions
		 WHERE tenant_id=? AND member_id=? AND created_at >= ?`, tenantID, memberID, toDB(since)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count member interventions: %w", err)
	}
	return n, nil
}

func (i *Interventions) ListDue(ctx context.Context, tenantID string, before time.Time) ([]intervention.Intervention, error) {
	rows, err := i.store.DB.QueryContext(ctx,
		`SELECT `+interventionColumns+` FROM interventions
		 WHERE tenant_id=? AND status=? AND next_attempt_at IS NOT NULL AND next_attempt_at <= ?
		 ORDER BY next_attempt_at`, tenantID, string(intervention.StatusScheduled), toDB(before))
	if err != nil {
		return nil, fmt.Errorf("failed to list due interventions: %w", err)
	}
	defer rows.Close()
	return collectInterventions(rows)
}

func (i *Interventions) List(ctx context.Context, f intervention.Filter) ([]intervention.Intervention, int, error) {
	where, args := buildFilter(f)

	var total int
	if err := i.store.DB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM interventions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count interventions: %w", err)
	}

	query := `SELECT ` + interventionColumns + ` FROM interventions` + where + ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
		if f.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", f.Offset)
		}
	}

	rows, err := i.store.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list interventions: %w", err)
	}
	defer rows.Close()

	out, err := collectInterventions(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (i *Interventions) InsertEvent(ctx context.Context, ev *intervention.MessageEvent) error {
	var payload any
	if len(ev.Payload) > 0 {
		payload = string(ev.Payload)
	}
	_, err := i.store.DB.ExecContext(ctx,
		`INSERT INTO message_events(id, intervention_id, type, payload, created_at) VALUES (?,?,?,?,?)`,
		ev.ID, ev.InterventionID, string(ev.Type), payload, toDB(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert message event: %w", err)
	}
	return nil
}

func (i *Interventions) ListEvents(ctx context.Context, interventionID string) ([]intervention.MessageEvent, error) {
	rows, err := i.store.DB.QueryContext(ctx,
		`SELECT id, intervention_id, type, payload, created_at
		 FROM message_events WHERE intervention_id = ? ORDER BY created_at`, interventionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list message events: %w", err)
	}
	defer rows.Close()

	var out []intervention.MessageEvent
	for rows.Next() {
		var ev intervention.MessageEvent
		var evType string
		var payload sql.NullString
		if err := rows.Scan(&ev.ID, &ev.InterventionID, &evType, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message event: %w", err)
		}
		ev.Type = intervention.EventType(evType)
		if payload.Valid {
			ev.Payload = json.RawMessage(payload.String)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func buildFilter(f intervention.Filter) (string, []any) {
	var conds []string
	var args []any
	if f.TenantID != "" {
		conds = append(conds, "tenant_id = ?")
		args = append(args, f.TenantID)
	}
	if f.MemberID != "" {
		conds = append(conds, "member_id = ?")
		args = append(args, f.MemberID)
	}
	if f.Channel != "" {
		conds = append(conds, "channel = ?")
		args = append(args, string(f.Channel))
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.From != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, toDB(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "created_at < ?")
		args = append(args, toDB(*f.To))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func collectInterventions(rows *sql.Rows) ([]intervention.Intervention, error) {
	var out []intervention.Intervention
	for rows.Next() {
		iv, err := scanIntervention(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *iv)
	}
	return out, rows.Err()
}

func scanIntervention(scan func(...any) error) (*intervention.Intervention, error) {
	var iv intervention.Intervention
	var ch, status string
	var providerID sql.NullString
	var nextAttempt, sentAt sql.NullTime
	err := scan(&iv.ID, &iv.TenantID, &iv.MemberID, &iv.PlayID, &ch, &status, &iv.Reason,
		&iv.Subject, &iv.Body, &iv.Recipient, &providerID, &nextAttempt,
		&iv.CreatedAt, &sentAt, &iv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan intervention: %w", err)
	}
	iv.Channel = channel.Channel(ch)
	iv.Status = intervention.Status(status)
	if providerID.Valid {
		iv.ProviderMessageID = providerID.String
	}
	if nextAttempt.Valid {
		t := nextAttempt.Time
		iv.NextAttemptAt = &t
	}
	if sentAt.Valid {
		t := sentAt.Time
		iv.SentAt = &t
	}
	return &iv, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toDB(*t)
}
