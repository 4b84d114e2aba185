// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

package config

// Config holds all application configuration loaded from environment variables.
// This struct uses github.com/caarlos0/env for automatic environment variable parsing.
type Config struct {
	// Server configuration
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8000"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"RetentionEngine"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// CronSecret authenticates the daily scheduler trigger. Required so a
	// misconfigured deployment cannot expose an open send endpoint.
	CronSecret string `env:"CRON_SECRET,required"`

	// Storage configuration
	DBPath string `env:"DB_PATH" envDefault:"data/retention.db"`

	// Redis configuration (scheduler run markers)
	RedisHost         string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort         string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisMaxRetries   int    `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	RedisRetryDelayMs int    `env:"REDIS_RETRY_DELAY_MS" envDefault:"1000"`

	// Play seeding
	PlaysConfigPath string `env:"PLAYS_CONFIG_PATH" envDefault:"config/plays.yaml"`

	// Engine tuning
	ChannelPriority       string  `env:"CHANNEL_PRIORITY" envDefault:"EMAIL,SMS,WHATSAPP"`
	ExpectedVisitsPerWeek float64 `env:"EXPECTED_VISITS_PER_WEEK" envDefault:"2"`
	SchedulerWorkers      int     `env:"SCHEDULER_WORKERS" envDefault:"4"`

	// Message provider endpoints. Empty URL leaves the channel unregistered.
	EmailProviderURL    string `env:"EMAIL_PROVIDER_URL"`
	SMSProviderURL      string `env:"SMS_PROVIDER_URL"`
	WhatsAppProviderURL string `env:"WHATSAPP_PROVIDER_URL"`
	ProviderAPIKey      string `env:"PROVIDER_API_KEY"`

	// Telemetry configuration
	OtelEnabled     bool   `env:"OTEL_ENABLED" envDefault:"true"`
	OtelEndpoint    string `env:"OTEL_EXPORTER_ZIPKIN_ENDPOINT"`
	OtelServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"retention-engine"`
}
