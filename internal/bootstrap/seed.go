// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gymkeeper/retention-engine/pkg/play"
	"github.com/gymkeeper/retention-engine/pkg/tenant"
)

// SeedPlays loads the default play set from the YAML seed file and creates
// it for every tenant that has no plays configured yet. Tenants with any
// existing plays (active or not) are left untouched.
func SeedPlays(ctx context.Context, path string, tenants tenant.Store, plays play.Store) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logrus.Infof("no play seed file at %s, skipping seeding", path)
		return nil
	}

	cfg, err := play.LoadSeedConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load play seed config: %w", err)
	}
	if len(cfg.Plays) == 0 {
		logrus.Warnf("play seed file %s contains no plays", path)
		return nil
	}

	all, err := tenants.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants for seeding: %w", err)
	}

	now := time.Now()
	seeded := 0
	for i := range all {
		t := all[i]
		existing, err := plays.List(ctx, t.ID, true)
		if err != nil {
			return fmt.Errorf("failed to list plays for tenant %s: %w", t.ID, err)
		}
		if len(existing) > 0 {
			continue
		}

		for _, sp := range cfg.Plays {
			p, err := sp.ToPlay(t.ID, now)
			if err != nil {
				return fmt.Errorf("invalid seed play for tenant %s: %w", t.ID, err)
			}
			p.ID = uuid.NewString()
			if err := plays.Create(ctx, p); err != nil {
				return fmt.Errorf("failed to seed play %q for tenant %s: %w", p.Name, t.ID, err)
			}
		}
		seeded++
		logrus.Infof("seeded %d default plays for tenant %s", len(cfg.Plays), t.ID)
	}

	if seeded == 0 {
		logrus.Info("all tenants already have plays configured, nothing to seed")
	}
	return nil
}
