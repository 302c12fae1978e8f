package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *ProductionConfig {
	return &ProductionConfig{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Name:     "copyforge",
			User:     "postgres",
			Password: "secret",
		},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Keystore: KeystoreConfig{BaseURL: "http://keystore.internal"},
		Ledger:   LedgerConfig{BaseURL: "http://ledger.internal", MaxAttempts: 4},
		AI: AIConfig{
			EmailModel:    "gpt-4o",
			SequenceModel: "gpt-4o",
			CalendarModel: "gpt-4o-mini",
		},
		Generation: GenerationConfig{SequenceDayOffsets: []int{0, 3, 10}},
		Logging:    LoggingConfig{Level: "info"},
	}
}

func TestValidateProductionConfig(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(cfg *ProductionConfig)
		expectError string
	}{
		{
			name:   "valid configuration",
			mutate: func(cfg *ProductionConfig) {},
		},
		{
			name:        "missing database password",
			mutate:      func(cfg *ProductionConfig) { cfg.Database.Password = "" },
			expectError: "DB_PASSWORD",
		},
		{
			name:        "missing ledger url",
			mutate:      func(cfg *ProductionConfig) { cfg.Ledger.BaseURL = "" },
			expectError: "LEDGER_BASE_URL",
		},
		{
			name:        "zero ledger attempts",
			mutate:      func(cfg *ProductionConfig) { cfg.Ledger.MaxAttempts = 0 },
			expectError: "LEDGER_MAX_ATTEMPTS",
		},
		{
			name:        "empty model id",
			mutate:      func(cfg *ProductionConfig) { cfg.AI.EmailModel = "" },
			expectError: "AI model identifiers",
		},
		{
			name:        "negative day offset",
			mutate:      func(cfg *ProductionConfig) { cfg.Generation.SequenceDayOffsets = []int{0, -1} },
			expectError: "GENERATION_SEQUENCE_DAY_OFFSETS",
		},
		{
			name: "short service auth secret when enabled",
			mutate: func(cfg *ProductionConfig) {
				cfg.ServiceAuth.Enabled = true
				cfg.ServiceAuth.SecretKey = "short"
			},
			expectError: "SERVICE_AUTH_SECRET_KEY",
		},
		{
			name:        "bad log level",
			mutate:      func(cfg *ProductionConfig) { cfg.Logging.Level = "verbose" },
			expectError: "LOG_LEVEL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)

			err := ValidateProductionConfig(cfg)
			if tt.expectError == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.expectError),
				"expected error mentioning %q, got %q", tt.expectError, err.Error())
		})
	}
}

func TestGetEnvIntSlice(t *testing.T) {
	t.Setenv("TEST_OFFSETS", "0, 3,10")
	assert.Equal(t, []int{0, 3, 10}, getEnvIntSlice("TEST_OFFSETS", []int{1}))

	t.Setenv("TEST_OFFSETS_BAD", "0,x,10")
	assert.Equal(t, []int{1}, getEnvIntSlice("TEST_OFFSETS_BAD", []int{1}))

	assert.Equal(t, []int{0, 3, 10}, getEnvIntSlice("TEST_OFFSETS_UNSET", []int{0, 3, 10}))
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "750ms")
	assert.Equal(t, 750*time.Millisecond, getEnvDuration("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION_BAD", "soon")
	assert.Equal(t, time.Second, getEnvDuration("TEST_DURATION_BAD", time.Second))
}
