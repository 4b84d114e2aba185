package play

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gymkeeper/retention-engine/pkg/channel"
)

// SeedConfig is the YAML shape for default plays seeded at startup when a
// tenant has none configured yet.
type SeedConfig struct {
	Plays []SeedPlay `yaml:"plays"`
}

// SeedPlay is one play entry in the seed file.
type SeedPlay struct {
	Name             string   `yaml:"name"`
	Active           bool     `yaml:"enabled"`
	Trigger          string   `yaml:"trigger"`
	MinRiskScore     int      `yaml:"min_risk_score"`
	Channels         []string `yaml:"channels"`
	RequiresApproval bool     `yaml:"requires_approval"`
	QuietHoursStart  string   `yaml:"quiet_hours_start"`
	QuietHoursEnd    string   `yaml:"quiet_hours_end"`
	MaxPerMemberWeek int      `yaml:"max_messages_per_member_per_week"`
	CooldownDays     int      `yaml:"cooldown_days"`
	Subject          string   `yaml:"subject"`
	Body             string   `yaml:"body"`
}

// LoadSeedConfig loads play seed configuration from a YAML file.
// Supports environment variable expansion in the form ${VAR_NAME} or ${VAR_NAME:default}.
func LoadSeedConfig(path string) (*SeedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var config SeedConfig
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	names := make(map[string]bool)
	for _, sp := range config.Plays {
		if sp.Name == "" {
			return nil, fmt.Errorf("play with empty name found")
		}
		if names[sp.Name] {
			return nil, fmt.Errorf("duplicate play name: %s", sp.Name)
		}
		names[sp.Name] = true
	}

	return &config, nil
}

// ToPlay converts a seed entry into a Play for the tenant.
// The returned play is validated; an invalid seed entry is an error.
func (sp SeedPlay) ToPlay(tenantID string, now time.Time) (*Play, error) {
	channels := make([]channel.Channel, 0, len(sp.Channels))
	for _, raw := range sp.Channels {
		ch, err := channel.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("play %q: %w", sp.Name, err)
		}
		channels = append(channels, ch)
	}

	trigger := TriggerType(strings.ToUpper(strings.TrimSpace(sp.Trigger)))
	if trigger == "" {
		trigger = TriggerDailyBatch
	}

	p := &Play{
		TenantID:         tenantID,
		Name:             sp.Name,
		Active:           sp.Active,
		Trigger:          trigger,
		MinRiskScore:     sp.MinRiskScore,
		Channels:         channels,
		RequiresApproval: sp.RequiresApproval,
		QuietHoursStart:  sp.QuietHoursStart,
		QuietHoursEnd:    sp.QuietHoursEnd,
		MaxPerMemberWeek: sp.MaxPerMemberWeek,
		CooldownDays:     sp.CooldownDays,
		Subject:          sp.Subject,
		Body:             sp.Body,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("play %q: %w", sp.Name, err)
	}

	return p, nil
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([^}]*))?\}`)

func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name, fallback := groups[1], groups[2]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return fallback
	})
}
