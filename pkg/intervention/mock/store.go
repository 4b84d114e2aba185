// Package mock provides an in-memory intervention store for tests.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gymkeeper/retention-engine/pkg/intervention"
)

// Store is a thread-safe in-memory implementation of intervention.Store.
type Store struct {
	mu     sync.Mutex
	rows   map[string]intervention.Intervention
	events []intervention.MessageEvent
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		rows: make(map[string]intervention.Intervention),
	}
}

func (s *Store) Insert(ctx context.Context, iv *intervention.Intervention) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[iv.ID] = *iv
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*intervention.Intervention, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	iv, ok := s.rows[id]
	if !ok {
		return nil, intervention.ErrNotFound
	}
	return &iv, nil
}

func (s *Store) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*intervention.Intervention, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, iv := range s.rows {
		if iv.ProviderMessageID == providerMessageID && providerMessageID != "" {
			row := iv
			return &row, nil
		}
	}
	return nil, intervention.ErrNotFound
}

func (s *Store) UpdateStatus(ctx context.Context, iv *intervention.Intervention, from intervention.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.rows[iv.ID]
	if !ok || current.Status != from {
		return intervention.ErrStatusConflict
	}
	s.rows[iv.ID] = *iv
	return nil
}

func (s *Store) ExistsForDay(ctx context.Context, tenantID, memberID, playID string, dayStart, dayEnd time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, iv := range s.rows {
		if iv.TenantID == tenantID && iv.MemberID == memberID && iv.PlayID == playID &&
			!iv.CreatedAt.Before(dayStart) && iv.CreatedAt.Before(dayEnd) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) LatestForPlay(ctx context.Context, tenantID, memberID, playID string) (*intervention.Intervention, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *intervention.Intervention
	for _, iv := range s.rows {
		if iv.TenantID != tenantID || iv.MemberID != memberID || iv.PlayID != playID {
			continue
		}
		row := iv
		if latest == nil || row.CreatedAt.After(latest.CreatedAt) {
			latest = &row
		}
	}
	if latest == nil {
		return nil, intervention.ErrNotFound
	}
	return latest, nil
}

func (s *Store) CountForMemberSince(ctx context.Context, tenantID, memberID string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, iv := range s.rows {
		if iv.TenantID == tenantID && iv.MemberID == memberID && !iv.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *Store) ListDue(ctx context.Context, tenantID string, before time.Time) ([]intervention.Intervention, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []intervention.Intervention
	for _, iv := range s.rows {
		if iv.TenantID == tenantID && iv.Status == intervention.StatusScheduled &&
			iv.NextAttemptAt != nil && !iv.NextAttemptAt.After(before) {
			due = append(due, iv)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	return due, nil
}

func (s *Store) List(ctx context.Context, f intervention.Filter) ([]intervention.Intervention, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []intervention.Intervention
	for _, iv := range s.rows {
		if f.TenantID != "" && iv.TenantID != f.TenantID {
			continue
		}
		if f.MemberID != "" && iv.MemberID != f.MemberID {
			continue
		}
		if f.Channel != "" && iv.Channel != f.Channel {
			continue
		}
		if f.Status != "" && iv.Status != f.Status {
			continue
		}
		if f.From != nil && iv.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && iv.CreatedAt.After(*f.To) {
			continue
		}
		all = append(all, iv)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if f.Offset > 0 {
		if f.Offset >= len(all) {
			all = nil
		} else {
			all = all[f.Offset:]
		}
	}
	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (s *Store) InsertEvent(ctx context.Context, ev *intervention.MessageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *ev)
	return nil
}

func (s *Store) ListEvents(ctx context.Context, interventionID string) ([]intervention.MessageEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []intervention.MessageEvent
	for _, ev := range s.events {
		if ev.InterventionID == interventionID {
			out = append(out, ev)
		}
	}
	return out, nil
}
