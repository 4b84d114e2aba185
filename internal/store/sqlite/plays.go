// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gymkeeper/retention-engine/pkg/channel"
	"github.com/gymkeeper/retention-engine/pkg/play"
)

// Plays adapts the store to play.Store.
type Plays struct {
	store *Store
}

// Plays returns the play.Store view of this database.
func (s *Store) Plays() *Plays {
	return &Plays{store: s}
}

func (p *Plays) Create(ctx context.Context, pl *play.Play) error {
	_, err := p.store.DB.ExecContext(ctx,
		`INSERT INTO plays(id, tenant_id, name, active, trigger_type, min_risk_score, channels,
			requires_approval, quiet_hours_start, quiet_hours_end, max_per_member_week,
			cooldown_days, subject, body, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		pl.ID, pl.TenantID, pl.Name, boolToInt(pl.Active), string(pl.Trigger), pl.MinRiskScore,
		joinChannels(pl.Channels), boolToInt(pl.RequiresApproval), pl.QuietHoursStart,
		pl.QuietHoursEnd, pl.MaxPerMemberWeek, pl.CooldownDays, pl.Subject, pl.Body,
		toDB(pl.CreatedAt), toDB(pl.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert play: %w", err)
	}
	return nil
}

func (p *Plays) Update(ctx context.Context, pl *play.Play) error {
	res, err := p.store.DB.ExecContext(ctx,
		`UPDATE plays SET name=?, active=?, trigger_type=?, min_risk_score=?, channels=?,
			requires_approval=?, quiet_hours_start=?, quiet_hours_end=?, max_per_member_week=?,
			cooldown_days=?, subject=?, body=?, updated_at=?
		 WHERE id=? AND tenant_id=? AND deleted_at IS NULL`,
		pl.Name, boolToInt(pl.Active), string(pl.Trigger), pl.MinRiskScore,
		joinChannels(pl.Channels), boolToInt(pl.RequiresApproval), pl.QuietHoursStart,
		pl.QuietHoursEnd, pl.MaxPerMemberWeek, pl.CooldownDays, pl.Subject, pl.Body,
		toDB(pl.UpdatedAt), pl.ID, pl.TenantID)
	if err != nil {
		return fmt.Errorf("failed to update play: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return play.ErrNotFound
	}
	return nil
}

func (p *Plays) Get(ctx context.Context, tenantID, id string) (*play.Play, error) {
	row := p.store.DB.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, active, trigger_type, min_risk_score, channels,
			requires_approval, quiet_hours_start, quiet_hours_end, max_per_member_week,
			cooldown_days, subject, body, created_at, updated_at, deleted_at
		 FROM plays WHERE tenant_id = ? AND id = ?`, tenantID, id)

	pl, err := scanPlay(row.Scan)
	if err == sql.ErrNoRows {
		return nil, play.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return pl, nil
}

func (p *Plays) List(ctx context.Context, tenantID string, includeInactive bool) ([]play.Play, error) {
	query := `SELECT id, tenant_id, name, active, trigger_type, min_risk_score, channels,
			requires_approval, quiet_hours_start, quiet_hours_end, max_per_member_week,
			cooldown_days, subject, body, created_at, updated_at, deleted_at
		 FROM plays WHERE tenant_id = ? AND deleted_at IS NULL`
	if !includeInactive {
		query += ` AND active = 1`
	}
	query += ` ORDER BY created_at`

	rows, err := p.store.DB.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plays: %w", err)
	}
	defer rows.Close()

	var out []play.Play
	for rows.Next() {
		pl, err := scanPlay(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *pl)
	}
	return out, rows.Err()
}

// Delete removes a play. Plays referenced by interventions are soft-deleted
// so historical rows keep resolving; unreferenced plays are removed outright.
func (p *Plays) Delete(ctx context.Context, tenantID, id string) error {
	var refs int
	err := p.store.DB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM interventions WHERE tenant_id = ? AND play_id = ?`, tenantID, id).Scan(&refs)
	if err != nil {
		return fmt.Errorf("failed to count play references: %w", err)
	}

	if refs > 0 {
		res, err := p.store.DB.ExecContext(ctx,
			`UPDATE plays SET active = 0, deleted_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL`, id, tenantID)
		if err != nil {
			return fmt.Errorf("failed to soft-delete play: %w", err)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return play.ErrNotFound
		}
		logrus.Infof("soft-deleted play %s (%d interventions reference it)", id, refs)
		return nil
	}

	res, err := p.store.DB.ExecContext(ctx,
		`DELETE FROM plays WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete play: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return play.ErrNotFound
	}
	return nil
}

func scanPlay(scan func(...any) error) (*play.Play, error) {
	var pl play.Play
	var active, approval int
	var channels string
	var trigger string
	var deleted sql.NullTime
	err := scan(&pl.ID, &pl.TenantID, &pl.Name, &active, &trigger, &pl.MinRiskScore, &channels,
		&approval, &pl.QuietHoursStart, &pl.QuietHoursEnd, &pl.MaxPerMemberWeek,
		&pl.CooldownDays, &pl.Subject, &pl.Body, &pl.CreatedAt, &pl.UpdatedAt, &deleted)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan play: %w", err)
	}
	pl.Active = active != 0
	pl.RequiresApproval = approval != 0
	pl.Trigger = play.TriggerType(trigger)
	pl.Channels = splitChannels(channels)
	if deleted.Valid {
		t := deleted.Time
		pl.DeletedAt = &t
	}
	return &pl, nil
}

func joinChannels(channels []channel.Channel) string {
	parts := make([]string, len(channels))
	for i, ch := range channels {
		parts[i] = string(ch)
	}
	return strings.Join(parts, ",")
}

func splitChannels(s string) []channel.Channel {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	channels := make([]channel.Channel, 0, len(parts))
	for _, part := range parts {
		ch, err := channel.Parse(part)
		if err != nil {
			logrus.Warnf("skipping unknown channel %q in stored play", part)
			continue
		}
		channels = append(channels, ch)
	}
	return channels
}
