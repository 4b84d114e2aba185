// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"testing"
)

func validConfig() *Config {
	return &Config{
		HTTPPort:              8000,
		MetricsPort:           8080,
		LogLevel:              "info",
		CronSecret:            "secret",
		DBPath:                "data/retention.db",
		ChannelPriority:       "EMAIL,SMS,WHATSAPP",
		ExpectedVisitsPerWeek: 2,
		SchedulerWorkers:      4,
	}
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("CRON_SECRET", "secret")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("SCHEDULER_WORKERS", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPPort != 9000 {
		t.Errorf("HTTPPort = %d", cfg.HTTPPort)
	}
	if cfg.SchedulerWorkers != 8 {
		t.Errorf("SchedulerWorkers = %d", cfg.SchedulerWorkers)
	}
	if cfg.MetricsPort != 8080 {
		t.Errorf("MetricsPort default = %d", cfg.MetricsPort)
	}
	if cfg.ChannelPriority != "EMAIL,SMS,WHATSAPP" {
		t.Errorf("ChannelPriority default = %q", cfg.ChannelPriority)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config invalid: %v", err)
	}
}

func TestLoad_MissingCronSecret(t *testing.T) {
	t.Setenv("CRON_SECRET", "")

	// env.Parse only enforces "required" for unset variables; an empty value
	// set in the environment is caught by Validate instead.
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("empty CRON_SECRET passed validation")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad http port", func(c *Config) { c.HTTPPort = 0 }},
		{"bad metrics port", func(c *Config) { c.MetricsPort = 70000 }},
		{"missing cron secret", func(c *Config) { c.CronSecret = "" }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"unknown channel in priority", func(c *Config) { c.ChannelPriority = "EMAIL,FAX" }},
		{"zero expected visits", func(c *Config) { c.ExpectedVisitsPerWeek = 0 }},
		{"zero workers", func(c *Config) { c.SchedulerWorkers = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
