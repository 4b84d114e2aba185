package intervention

import (
	"encoding/json"
	"time"

	"github.com/gymkeeper/retention-engine/pkg/channel"
)

// Intervention is one concrete, trackable outreach attempt to one member for
// one play. Rows are never deleted; cancellation is itself a terminal state.
type Intervention struct {
	ID                string          `json:"id"`
	TenantID          string          `json:"tenantId"`
	MemberID          string          `json:"memberId"`
	PlayID            string          `json:"playId"`
	Channel           channel.Channel `json:"channel"`
	Status            Status          `json:"status"`
	Reason            string          `json:"reason"`
	Subject           string          `json:"renderedSubject"`
	Body              string          `json:"renderedBody"`
	Recipient         string          `json:"recipient"`
	ProviderMessageID string          `json:"providerMessageId,omitempty"`
	NextAttemptAt     *time.Time      `json:"nextAttemptAt,omitempty"` // quiet-hours hold
	CreatedAt         time.Time       `json:"createdAt"`
	SentAt            *time.Time      `json:"sentAt,omitempty"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// EventType classifies a provider delivery callback.
type EventType string

const (
	EventDelivered EventType = "DELIVERED"
	EventFailed    EventType = "FAILED"
)

// MessageEvent is one append-only audit record for an intervention.
// Events are write-once and never mutated.
type MessageEvent struct {
	ID             string          `json:"id"`
	InterventionID string          `json:"interventionId"`
	Type           EventType       `json:"type"`
	Payload        json.RawMessage `json:"payload,omitempty"` // opaque provider payload
	CreatedAt      time.Time       `json:"createdAt"`
}
