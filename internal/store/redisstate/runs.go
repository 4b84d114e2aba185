// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

// Package redisstate keeps the scheduler's advisory run markers in Redis.
package redisstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/gymkeeper/retention-engine/pkg/scheduler"
)

const (
	// DefaultTTL keeps run markers around long enough to observe yesterday's
	// pass, then lets them expire.
	DefaultTTL = 48 * time.Hour
	// KeyPrefix is the prefix for all scheduler run keys.
	KeyPrefix = "retention:run:"
)

// RunStore implements scheduler.RunStore over Redis. Markers are advisory;
// losing them only costs a log line on re-runs, never correctness.
type RunStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRunStore creates a run store with the default TTL.
func NewRunStore(client *redis.Client) *RunStore {
	return &RunStore{client: client, ttl: DefaultTTL}
}

// makeKey creates the Redis key for one (tenant, day) pass.
func makeKey(tenantID, day string) string {
	return fmt.Sprintf("%s%s:%s", KeyPrefix, tenantID, day)
}

// LastRun returns the recorded marker for the tenant-local day, or nil when
// no pass has run yet.
func (r *RunStore) LastRun(ctx context.Context, tenantID, day string) (*scheduler.RunRecord, error) {
	key := makeKey(tenantID, day)

	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		logrus.Errorf("failed to get run marker %s: %v", key, err)
		return nil, fmt.Errorf("failed to get run marker: %w", err)
	}

	var rec scheduler.RunRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		logrus.Errorf("failed to unmarshal run marker %s: %v", key, err)
		return nil, fmt.Errorf("failed to unmarshal run marker: %w", err)
	}
	return &rec, nil
}

// RecordRun writes the marker for the pass with a TTL.
func (r *RunStore) RecordRun(ctx context.Context, rec *scheduler.RunRecord) error {
	key := makeKey(rec.TenantID, rec.Day)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal run marker: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		logrus.Errorf("failed to set run marker %s: %v", key, err)
		return fmt.Errorf("failed to set run marker: %w", err)
	}

	logrus.Debugf("recorded run marker %s (created=%d sent=%d)", key, rec.Created, rec.Sent)
	return nil
}
