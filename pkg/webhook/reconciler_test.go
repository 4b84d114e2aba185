package webhook_test

import (
	"context"
	"testing"
	"time"

	"github.com/gymkeeper/retention-engine/pkg/channel"
	"github.com/gymkeeper/retention-engine/pkg/intervention"
	"github.com/gymkeeper/retention-engine/pkg/intervention/mock"
	"github.com/gymkeeper/retention-engine/pkg/webhook"
)

var reconcileNow = time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)

func seedSent(t *testing.T, store *mock.Store, providerID string) *intervention.Intervention {
	t.Helper()
	sentAt := reconcileNow.Add(-time.Hour)
	iv := &intervention.Intervention{
		ID:                "iv-1",
		TenantID:          "t-1",
		MemberID:          "m-1",
		PlayID:            "play-1",
		Channel:           channel.SMS,
		Status:            intervention.StatusSent,
		ProviderMessageID: providerID,
		Recipient:         "+15551234",
		CreatedAt:         sentAt,
		SentAt:            &sentAt,
		UpdatedAt:         sentAt,
	}
	if err := store.Insert(context.Background(), iv); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return iv
}

func TestApply_Delivered(t *testing.T) {
	store := mock.NewStore()
	seedSent(t, store, "SM123")
	r := webhook.NewReconciler(store, func() time.Time { return reconcileNow })

	updated, err := r.Apply(context.Background(), webhook.Delivery{
		ProviderMessageID: "SM123",
		Type:              intervention.EventDelivered,
		Raw:               []byte(`{"MessageStatus":"delivered"}`),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if updated == nil || updated.Status != intervention.StatusDelivered {
		t.Fatalf("updated = %+v", updated)
	}

	events, err := store.ListEvents(context.Background(), "iv-1")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || events[0].Type != intervention.EventDelivered {
		t.Errorf("events = %+v", events)
	}
}

func TestApply_Failed(t *testing.T) {
	store := mock.NewStore()
	seedSent(t, store, "SM123")
	r := webhook.NewReconciler(store, func() time.Time { return reconcileNow })

	updated, err := r.Apply(context.Background(), webhook.Delivery{
		ProviderMessageID: "SM123",
		Type:              intervention.EventFailed,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if updated.Status != intervention.StatusFailed {
		t.Errorf("status = %s", updated.Status)
	}
}

func TestApply_UnknownProviderMessageID(t *testing.T) {
	store := mock.NewStore()
	r := webhook.NewReconciler(store, nil)

	updated, err := r.Apply(context.Background(), webhook.Delivery{
		ProviderMessageID: "unknown",
		Type:              intervention.EventDelivered,
	})
	if err != nil {
		t.Errorf("unknown id must be a no-op, got %v", err)
	}
	if updated != nil {
		t.Errorf("updated = %+v, expected nil", updated)
	}
}

func TestApply_DuplicateEventIsIdempotent(t *testing.T) {
	store := mock.NewStore()
	seedSent(t, store, "SM123")
	r := webhook.NewReconciler(store, func() time.Time { return reconcileNow })

	d := webhook.Delivery{ProviderMessageID: "SM123", Type: intervention.EventDelivered}

	if _, err := r.Apply(context.Background(), d); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	updated, err := r.Apply(context.Background(), d)
	if err != nil {
		t.Fatalf("replay Apply: %v", err)
	}
	if updated != nil {
		t.Errorf("replay changed state: %+v", updated)
	}

	events, _ := store.ListEvents(context.Background(), "iv-1")
	if len(events) != 1 {
		t.Errorf("replay appended a duplicate audit row: %d events", len(events))
	}
}

func TestApply_TerminalNeverRegresses(t *testing.T) {
	store := mock.NewStore()
	seedSent(t, store, "SM123")
	r := webhook.NewReconciler(store, func() time.Time { return reconcileNow })

	if _, err := r.Apply(context.Background(), webhook.Delivery{
		ProviderMessageID: "SM123",
		Type:              intervention.EventDelivered,
	}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// A late failure event for an already-delivered message is dropped.
	updated, err := r.Apply(context.Background(), webhook.Delivery{
		ProviderMessageID: "SM123",
		Type:              intervention.EventFailed,
	})
	if err != nil {
		t.Fatalf("late event Apply: %v", err)
	}
	if updated != nil {
		t.Errorf("terminal row changed: %+v", updated)
	}

	iv, _ := store.Get(context.Background(), "iv-1")
	if iv.Status != intervention.StatusDelivered {
		t.Errorf("status regressed to %s", iv.Status)
	}
}

func TestApply_OutOfOrderBeforeSend(t *testing.T) {
	// A delivery callback racing ahead of the SENT write must not error and
	// must not corrupt the row.
	store := mock.NewStore()
	iv := &intervention.Intervention{
		ID:                "iv-2",
		TenantID:          "t-1",
		MemberID:          "m-1",
		PlayID:            "play-1",
		Channel:           channel.Email,
		Status:            intervention.StatusScheduled,
		ProviderMessageID: "sg-9",
		CreatedAt:         reconcileNow,
		UpdatedAt:         reconcileNow,
	}
	if err := store.Insert(context.Background(), iv); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	r := webhook.NewReconciler(store, func() time.Time { return reconcileNow })

	updated, err := r.Apply(context.Background(), webhook.Delivery{
		ProviderMessageID: "sg-9",
		Type:              intervention.EventDelivered,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if updated != nil {
		t.Errorf("SCHEDULED row advanced to DELIVERED: %+v", updated)
	}
	got, _ := store.Get(context.Background(), "iv-2")
	if got.Status != intervention.StatusScheduled {
		t.Errorf("status = %s", got.Status)
	}
}
