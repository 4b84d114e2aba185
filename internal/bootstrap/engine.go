// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

// Package bootstrap wires the engine's components from configuration.
package bootstrap

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gymkeeper/retention-engine/internal/config"
	"github.com/gymkeeper/retention-engine/pkg/channel"
	"github.com/gymkeeper/retention-engine/pkg/intervention"
	"github.com/gymkeeper/retention-engine/pkg/matcher"
	"github.com/gymkeeper/retention-engine/pkg/member"
	"github.com/gymkeeper/retention-engine/pkg/play"
	"github.com/gymkeeper/retention-engine/pkg/policy"
	"github.com/gymkeeper/retention-engine/pkg/scheduler"
	"github.com/gymkeeper/retention-engine/pkg/scoring"
	"github.com/gymkeeper/retention-engine/pkg/tenant"
)

// Engine bundles the wired pipeline: matcher -> gate -> lifecycle -> scheduler.
type Engine struct {
	Matcher   *matcher.Matcher
	Gate      *policy.Gate
	Lifecycle *intervention.Manager
	Scheduler *scheduler.Scheduler
}

// Stores collects the persistence interfaces the engine runs on.
type Stores struct {
	Tenants       tenant.Store
	Members       member.EngagementStore
	Plays         play.Store
	Interventions intervention.Store
	Runs          scheduler.RunStore
}

// InitEngine builds the scoring, gating and scheduling pipeline from config.
func InitEngine(cfg *config.Config, stores Stores, senders *channel.Registry) (*Engine, error) {
	priority, err := channel.ParsePriority(cfg.ChannelPriority)
	if err != nil {
		return nil, fmt.Errorf("failed to parse channel priority: %w", err)
	}

	commitmentCfg := scoring.DefaultCommitmentConfig()
	commitmentCfg.ExpectedVisitsPerWeek = cfg.ExpectedVisitsPerWeek

	m := matcher.New(commitmentCfg, scoring.DefaultChurnConfig(), priority)
	gate := policy.NewGate(stores.Interventions, nil)
	lifecycle := intervention.NewManager(stores.Interventions, senders, stores.Plays, stores.Tenants, nil)

	sched := scheduler.New(scheduler.Config{
		Tenants:   stores.Tenants,
		Members:   stores.Members,
		Plays:     stores.Plays,
		Store:     stores.Interventions,
		Gate:      gate,
		Matcher:   m,
		Lifecycle: lifecycle,
		Runs:      stores.Runs,
		Workers:   cfg.SchedulerWorkers,
	})

	logrus.Infof("initialized engine (workers=%d priority=%v)", cfg.SchedulerWorkers, priority)

	return &Engine{
		Matcher:   m,
		Gate:      gate,
		Lifecycle: lifecycle,
		Scheduler: sched,
	}, nil
}
