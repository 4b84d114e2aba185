package play

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gymkeeper/retention-engine/pkg/channel"
)

// TriggerType selects how a play is evaluated.
type TriggerType string

const (
	// TriggerDailyBatch plays are evaluated by the daily scheduler pass.
	TriggerDailyBatch TriggerType = "DAILY_BATCH"

	// TriggerEventWebhook plays are evaluated when an external event
	// arrives for a member.
	TriggerEventWebhook TriggerType = "EVENT_WEBHOOK"
)

// ErrNotFound is returned when a play does not exist.
var ErrNotFound = errors.New("play not found")

// Play is a configured outreach rule. It is owned by the tenant operator and
// read-only to the engine during a run.
type Play struct {
	ID               string            `json:"id"`
	TenantID         string            `json:"tenantId"`
	Name             string            `json:"name"`
	Active           bool              `json:"active"`
	Trigger          TriggerType       `json:"triggerType"`
	MinRiskScore     int               `json:"minRiskScore"`
	Channels         []channel.Channel `json:"channels"`
	RequiresApproval bool              `json:"requiresApproval"`
	QuietHoursStart  string            `json:"quietHoursStart"` // "HH:MM" tenant-local
	QuietHoursEnd    string            `json:"quietHoursEnd"`
	MaxPerMemberWeek int               `json:"maxMessagesPerMemberPerWeek"`
	CooldownDays     int               `json:"cooldownDays"`
	Subject          string            `json:"templateSubject"`
	Body             string            `json:"templateBody"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	DeletedAt        *time.Time        `json:"deletedAt,omitempty"`
}

// AllowsChannel reports whether the play may send on the channel.
func (p *Play) AllowsChannel(ch channel.Channel) bool {
	for _, c := range p.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// ValidationError carries field-level validation detail, surfaced as a 400.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return "invalid play config: " + strings.Join(parts, "; ")
}

// Validate checks the play invariants: non-empty channels, valid HH:MM quiet
// hours, minRiskScore in [0,100], sane caps and cooldowns.
func (p *Play) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(p.Name) == "" {
		fields["name"] = "must not be empty"
	}
	if p.Trigger != TriggerDailyBatch && p.Trigger != TriggerEventWebhook {
		fields["triggerType"] = fmt.Sprintf("must be %s or %s", TriggerDailyBatch, TriggerEventWebhook)
	}
	if p.MinRiskScore < 0 || p.MinRiskScore > 100 {
		fields["minRiskScore"] = "must be in [0,100]"
	}
	if len(p.Channels) == 0 {
		fields["channels"] = "must not be empty"
	}
	for _, ch := range p.Channels {
		if _, err := channel.Parse(string(ch)); err != nil {
			fields["channels"] = err.Error()
			break
		}
	}
	if _, err := ParseClock(p.QuietHoursStart); err != nil {
		fields["quietHoursStart"] = err.Error()
	}
	if _, err := ParseClock(p.QuietHoursEnd); err != nil {
		fields["quietHoursEnd"] = err.Error()
	}
	if p.MaxPerMemberWeek < 1 {
		fields["maxMessagesPerMemberPerWeek"] = "must be at least 1"
	}
	if p.CooldownDays < 0 {
		fields["cooldownDays"] = "must not be negative"
	}
	if strings.TrimSpace(p.Body) == "" {
		fields["templateBody"] = "must not be empty"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ParseClock parses an "HH:MM" time-of-day into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q, expected HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour*60 + minute, nil
}

// Store provides access to play configuration.
type Store interface {
	Create(ctx context.Context, p *Play) error
	Update(ctx context.Context, p *Play) error
	Get(ctx context.Context, tenantID, id string) (*Play, error)
	// List returns plays for a tenant. Soft-deleted plays are never
	// returned; inactive ones only when includeInactive is set.
	List(ctx context.Context, tenantID string, includeInactive bool) ([]Play, error)
	// Delete removes a play. Implementations soft-delete when
	// interventions reference the play and hard-delete otherwise.
	Delete(ctx context.Context, tenantID, id string) error
}
