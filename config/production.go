// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database    DatabaseConfig    `json:"database"`
	Server      ServerConfig      `json:"server"`
	Security    SecurityConfig    `json:"security"`
	ServiceAuth ServiceAuthConfig `json:"service_auth"`
	AI          AIConfig          `json:"ai"`
	Keystore    KeystoreConfig    `json:"keystore"`
	Ledger      LedgerConfig      `json:"ledger"`
	Generation  GenerationConfig  `json:"generation"`
	Logging     LoggingConfig     `json:"logging"`
	Metrics     MetricsConfig     `json:"metrics"`
	Cache       CacheConfig       `json:"cache"`
	Deployment  DeploymentConfig  `json:"deployment"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

type ServerConfig struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	ReadTimeout       time.Duration `json:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`
	BodyLimit         int           `json:"body_limit"`
	EnableMetrics     bool          `json:"enable_metrics"`
	TrustedProxies    []string      `json:"trusted_proxies"`
	ProxyHeader       string        `json:"proxy_header"`
	EnableCompression bool          `json:"enable_compression"`
	CompressionLevel  int           `json:"compression_level"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	CORSMaxAge       int      `json:"cors_max_age"`

	// Rate Limiting
	GlobalRateLimit int           `json:"global_rate_limit"` // requests per window
	RateLimitWindow time.Duration `json:"rate_limit_window"`

	// Content Security
	XFrameOptions       string `json:"x_frame_options"`
	XContentTypeOptions string `json:"x_content_type_options"`
	ReferrerPolicy      string `json:"referrer_policy"`
}

// ServiceAuthConfig configures the optional service-to-service token check.
// Callers are internal services; when enabled they must present an HS256 JWT
// in the service token header in addition to the organization header.
type ServiceAuthConfig struct {
	Enabled   bool          `json:"enabled"`
	SecretKey string        `json:"secret_key"`
	Issuer    string        `json:"issuer"`
	Audience  string        `json:"audience"`
	TokenTTL  time.Duration `json:"token_ttl"`
}

// AIConfig configures the LLM provider client. Model ids and system prompts
// are configuration data, never compiled-in constants, so a model change does
// not touch orchestration code.
type AIConfig struct {
	Provider             string        `json:"provider"`
	EmailModel           string        `json:"email_model"`
	SequenceModel        string        `json:"sequence_model"`
	CalendarModel        string        `json:"calendar_model"`
	EmailSystemPrompt    string        `json:"email_system_prompt"`
	SequenceSystemPrompt string        `json:"sequence_system_prompt"`
	CalendarSystemPrompt string        `json:"calendar_system_prompt"`
	MaxTokens            int           `json:"max_tokens"`
	Temperature          float64       `json:"temperature"`
	Timeout              time.Duration `json:"timeout"`
}

type KeystoreConfig struct {
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"api_key"`
	Timeout time.Duration `json:"timeout"`
}

type LedgerConfig struct {
	BaseURL      string        `json:"base_url"`
	APIKey       string        `json:"api_key"`
	Timeout      time.Duration `json:"timeout"`
	MaxAttempts  int           `json:"max_attempts"`
	RetryBackoff time.Duration `json:"retry_backoff"`
}

// GenerationConfig holds generation-pipeline parameters: the fixed day
// offsets for outreach sequence steps and the ledger cost-name mapping per
// provider/model/direction.
type GenerationConfig struct {
	SequenceDayOffsets []int `json:"sequence_day_offsets"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`

	// Custom Metrics
	CollectDBMetrics  bool `json:"collect_db_metrics"`
	CollectAIMetrics  bool `json:"collect_ai_metrics"`
	CollectAppMetrics bool `json:"collect_app_metrics"`
}

type CacheConfig struct {
	Enabled     bool          `json:"enabled"`
	RedisURL    string        `json:"redis_url"`
	RedisDB     int           `json:"redis_db"`
	RedisPrefix string        `json:"redis_prefix"`
	DefaultTTL  time.Duration `json:"default_ttl"`
}

type DeploymentConfig struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
	BuildTime   string `json:"build_time"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Load environment variables from .env file
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "copyforge"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Server: ServerConfig{
			Host:              getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:              getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:       getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:      getEnvDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			IdleTimeout:       getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout:   getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:         getEnvInt("SERVER_BODY_LIMIT", 1*1024*1024), // 1MB
			EnableMetrics:     getEnvBool("SERVER_ENABLE_METRICS", true),
			TrustedProxies:    getEnvStringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}),
			ProxyHeader:       getEnvString("SERVER_PROXY_HEADER", "X-Real-IP"),
			EnableCompression: getEnvBool("SERVER_ENABLE_COMPRESSION", true),
			CompressionLevel:  getEnvInt("SERVER_COMPRESSION_LEVEL", 6),
		},
		Security: SecurityConfig{
			AllowedOrigins:      getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{}),
			AllowedMethods:      getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "OPTIONS"}),
			AllowedHeaders:      getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "X-Organization-ID", "X-Service-Token"}),
			AllowCredentials:    getEnvBool("CORS_ALLOW_CREDENTIALS", false),
			CORSMaxAge:          getEnvInt("CORS_MAX_AGE", 86400),
			GlobalRateLimit:     getEnvInt("GLOBAL_RATE_LIMIT", 2000),
			RateLimitWindow:     getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
			XFrameOptions:       getEnvString("X_FRAME_OPTIONS", "DENY"),
			XContentTypeOptions: getEnvString("X_CONTENT_TYPE_OPTIONS", "nosniff"),
			ReferrerPolicy:      getEnvString("REFERRER_POLICY", "strict-origin-when-cross-origin"),
		},
		ServiceAuth: ServiceAuthConfig{
			Enabled:   getEnvBool("SERVICE_AUTH_ENABLED", false),
			SecretKey: getEnvString("SERVICE_AUTH_SECRET_KEY", ""),
			Issuer:    getEnvString("SERVICE_AUTH_ISSUER", "copyforge"),
			Audience:  getEnvString("SERVICE_AUTH_AUDIENCE", "copyforge-api"),
			TokenTTL:  getEnvDuration("SERVICE_AUTH_TOKEN_TTL", 1*time.Hour),
		},
		AI: AIConfig{
			Provider:             getEnvString("AI_PROVIDER", "openai"),
			EmailModel:           getEnvString("AI_EMAIL_MODEL", "gpt-4o"),
			SequenceModel:        getEnvString("AI_SEQUENCE_MODEL", "gpt-4o"),
			CalendarModel:        getEnvString("AI_CALENDAR_MODEL", "gpt-4o-mini"),
			EmailSystemPrompt:    getEnvString("AI_EMAIL_SYSTEM_PROMPT", defaultEmailSystemPrompt),
			SequenceSystemPrompt: getEnvString("AI_SEQUENCE_SYSTEM_PROMPT", defaultSequenceSystemPrompt),
			CalendarSystemPrompt: getEnvString("AI_CALENDAR_SYSTEM_PROMPT", defaultCalendarSystemPrompt),
			MaxTokens:            getEnvInt("AI_MAX_TOKENS", 4096),
			Temperature:          getEnvFloat("AI_TEMPERATURE", 0.7),
			Timeout:              getEnvDuration("AI_TIMEOUT", 120*time.Second),
		},
		Keystore: KeystoreConfig{
			BaseURL: getEnvString("KEYSTORE_BASE_URL", "http://keystore.internal"),
			APIKey:  getEnvString("KEYSTORE_API_KEY", ""),
			Timeout: getEnvDuration("KEYSTORE_TIMEOUT", 10*time.Second),
		},
		Ledger: LedgerConfig{
			BaseURL:      getEnvString("LEDGER_BASE_URL", "http://ledger.internal"),
			APIKey:       getEnvString("LEDGER_API_KEY", ""),
			Timeout:      getEnvDuration("LEDGER_TIMEOUT", 15*time.Second),
			MaxAttempts:  getEnvInt("LEDGER_MAX_ATTEMPTS", 4),
			RetryBackoff: getEnvDuration("LEDGER_RETRY_BACKOFF", 500*time.Millisecond),
		},
		Generation: GenerationConfig{
			SequenceDayOffsets: getEnvIntSlice("GENERATION_SEQUENCE_DAY_OFFSETS", []int{0, 3, 10}),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Output:     getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:   getEnvString("LOG_FILE_PATH", "/var/log/copyforge/app.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled:           getEnvBool("METRICS_ENABLED", true),
			Port:              getEnvInt("METRICS_PORT", 9090),
			Path:              getEnvString("METRICS_PATH", "/metrics"),
			CollectDBMetrics:  getEnvBool("METRICS_COLLECT_DB", true),
			CollectAIMetrics:  getEnvBool("METRICS_COLLECT_AI", true),
			CollectAppMetrics: getEnvBool("METRICS_COLLECT_APP", true),
		},
		Cache: CacheConfig{
			Enabled:     getEnvBool("CACHE_ENABLED", true),
			RedisURL:    getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:     getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix: getEnvString("CACHE_REDIS_PREFIX", "copyforge:"),
			DefaultTTL:  getEnvDuration("CACHE_DEFAULT_TTL", 1*time.Hour),
		},
		Deployment: DeploymentConfig{
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("VERSION", "1.0.0"),
			CommitHash:  getEnvString("COMMIT_HASH", "unknown"),
			BuildTime:   getEnvString("BUILD_TIME", "unknown"),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

const (
	defaultEmailSystemPrompt = "You are an expert B2B copywriter. Write a cold outreach email from the brief. " +
		"Respond with a JSON object: {\"subject\": string, \"body_html\": string, \"body_text\": string}."
	defaultSequenceSystemPrompt = "You are an expert B2B copywriter. Write a 3-step cold outreach sequence from the brief: " +
		"an opener and two follow-ups that reference the previous touch. " +
		"Respond with a JSON object: {\"subject\": string, \"body\": string, \"followup1\": string, \"followup2\": string}."
	defaultCalendarSystemPrompt = "You are an assistant that drafts calendar invitations from a brief. " +
		"Respond with a JSON object: {\"title\": string, \"description\": string, \"location\": string}."
)

// loadEnvFile loads environment variables from .env file if it exists
func loadEnvFile() error {
	envFile := ".env"

	// Check if .env file exists
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		// .env file doesn't exist, continue with environment variables
		return nil
	}

	// Open .env file
	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	// Read file line by line
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key=value pairs
		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				value := strings.TrimSpace(parts[1])

				// Remove quotes if present
				if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
					(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`)) {
					value = value[1 : len(value)-1]
				}

				// Set environment variable if not already set
				if os.Getenv(key) == "" {
					os.Setenv(key, value)
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

func getEnvIntSlice(key string, defaultValue []int) []int {
	if value := os.Getenv(key); value != "" {
		var result []int
		for _, item := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(item)
			if trimmed == "" {
				continue
			}
			parsed, err := strconv.Atoi(trimmed)
			if err != nil {
				return defaultValue
			}
			result = append(result, parsed)
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}
	if cfg.Database.Password == "" {
		errors = append(errors, "DB_PASSWORD is required")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}

	// Validate service auth configuration if enabled
	if cfg.ServiceAuth.Enabled {
		if cfg.ServiceAuth.SecretKey == "" {
			errors = append(errors, "SERVICE_AUTH_SECRET_KEY is required when service auth is enabled")
		}
		if len(cfg.ServiceAuth.SecretKey) > 0 && len(cfg.ServiceAuth.SecretKey) < 32 {
			errors = append(errors, "SERVICE_AUTH_SECRET_KEY must be at least 32 characters long")
		}
	}

	// Validate collaborator configuration
	if cfg.Keystore.BaseURL == "" {
		errors = append(errors, "KEYSTORE_BASE_URL is required")
	}
	if cfg.Ledger.BaseURL == "" {
		errors = append(errors, "LEDGER_BASE_URL is required")
	}
	if cfg.Ledger.MaxAttempts < 1 {
		errors = append(errors, "LEDGER_MAX_ATTEMPTS must be at least 1")
	}

	// Validate AI configuration
	if cfg.AI.EmailModel == "" || cfg.AI.SequenceModel == "" || cfg.AI.CalendarModel == "" {
		errors = append(errors, "AI model identifiers must not be empty")
	}

	// Validate generation configuration
	if len(cfg.Generation.SequenceDayOffsets) == 0 {
		errors = append(errors, "GENERATION_SEQUENCE_DAY_OFFSETS must name at least one step")
	}
	for _, offset := range cfg.Generation.SequenceDayOffsets {
		if offset < 0 {
			errors = append(errors, "GENERATION_SEQUENCE_DAY_OFFSETS must be non-negative")
			break
		}
	}

	// Validate logging configuration
	if cfg.Logging.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		valid := false
		for _, level := range validLevels {
			if cfg.Logging.Level == level {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.RedisURL == "" {
			errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled")
		}
	}

	// Return validation errors if any
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
