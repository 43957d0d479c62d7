package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"pc28/database"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Source kinds understood by the adapter factory
const (
	SourceKindUSA28  = "usa28"
	SourceKindJND28  = "jnd28"
	SourceKindLedger = "ledger"
)

// SourceConfig describes one draw source adapter
type SourceConfig struct {
	Name           string `toml:"name"`
	Kind           string `toml:"kind"`
	URL            string `toml:"url"`
	Priority       int    `toml:"priority"`
	Enabled        bool   `toml:"enabled"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the adapter's request timeout
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// NATS configuration, empty disables event fan-out
	NATSServers string

	// Redis configuration, empty falls back to in-process settlement locks
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// HTTP configuration
	HTTPAddr   string
	AdminToken string

	// Draw sources
	SourcesFile string
	Sources     []SourceConfig

	// Acquisition tuning
	SyncDenseSeconds       int
	SyncSparseSeconds      int
	SyncDenseWindowSeconds int
	StaleBufferSeconds     int
	StaleThreshold         int

	// How often system_settings is re-read
	SettingsRefreshSeconds int

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Logging
	LogLevel string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// SyncDense returns the dense poll interval
func (c *Config) SyncDense() time.Duration {
	return time.Duration(c.SyncDenseSeconds) * time.Second
}

// SyncSparse returns the sparse poll interval
func (c *Config) SyncSparse() time.Duration {
	return time.Duration(c.SyncSparseSeconds) * time.Second
}

// SyncDenseWindow returns how long dense polling lasts after an expected draw
func (c *Config) SyncDenseWindow() time.Duration {
	return time.Duration(c.SyncDenseWindowSeconds) * time.Second
}

// StaleBuffer returns the grace period before a repeated issue is stale
func (c *Config) StaleBuffer() time.Duration {
	return time.Duration(c.StaleBufferSeconds) * time.Second
}

// SettingsRefresh returns the settings reload interval
func (c *Config) SettingsRefresh() time.Duration {
	return time.Duration(c.SettingsRefreshSeconds) * time.Second
}

// DefaultSources returns the built-in source list used when no sources file is configured
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Name:           "usa28",
			Kind:           SourceKindUSA28,
			URL:            "https://api.365kaik.com/api/v1/trend/getHistoryList?lotCode=10029&pageSize=2&pageNo=1",
			Priority:       1,
			Enabled:        true,
			TimeoutSeconds: 10,
		},
		{
			Name:           "jnd28",
			Kind:           SourceKindJND28,
			URL:            "https://c2api.canada28.vip/api/lotteryresult/result_jnd28?game_id=7&page=1&page_size=2",
			Priority:       2,
			Enabled:        true,
			TimeoutSeconds: 15,
		},
		{
			Name:     "ledger",
			Kind:     SourceKindLedger,
			Priority: 99,
			Enabled:  true,
		},
	}
}

// sourcesFile is the layout of SOURCES_FILE
type sourcesFile struct {
	Sources []SourceConfig `toml:"source"`
}

// LoadSources reads a TOML source list. Entries without a timeout get 10 seconds.
func LoadSources(path string) ([]SourceConfig, error) {
	var file sourcesFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to decode sources file %s: %w", path, err)
	}
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s defines no sources", path)
	}

	seen := make(map[string]bool)
	for i := range file.Sources {
		src := &file.Sources[i]
		if src.Name == "" {
			return nil, fmt.Errorf("source %d in %s has no name", i, path)
		}
		if seen[src.Name] {
			return nil, fmt.Errorf("duplicate source name %q in %s", src.Name, path)
		}
		seen[src.Name] = true

		switch src.Kind {
		case SourceKindUSA28, SourceKindJND28:
			if src.URL == "" {
				return nil, fmt.Errorf("source %q requires a url", src.Name)
			}
		case SourceKindLedger:
		default:
			return nil, fmt.Errorf("source %q has unknown kind %q", src.Name, src.Kind)
		}
		if src.TimeoutSeconds <= 0 {
			src.TimeoutSeconds = 10
		}
	}
	return file.Sources, nil
}

// load loads configuration from the environment, reading .env first when present
func load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// NATS
		NATSServers: os.Getenv("NATS_SERVERS"),

		// Redis
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getIntWithDefault("REDIS_DB", 0),

		// HTTP
		HTTPAddr:   getEnvWithDefault("HTTP_ADDR", ":8080"),
		AdminToken: os.Getenv("ADMIN_TOKEN"),

		// Sources
		SourcesFile: os.Getenv("SOURCES_FILE"),

		// Acquisition
		SyncDenseSeconds:       getIntWithDefault("SYNC_DENSE_SECONDS", 5),
		SyncSparseSeconds:      getIntWithDefault("SYNC_SPARSE_SECONDS", 60),
		SyncDenseWindowSeconds: getIntWithDefault("SYNC_DENSE_WINDOW_SECONDS", 60),
		StaleBufferSeconds:     getIntWithDefault("STALE_BUFFER_SECONDS", 30),
		StaleThreshold:         getIntWithDefault("STALE_THRESHOLD", 3),

		SettingsRefreshSeconds: getIntWithDefault("SETTINGS_REFRESH_SECONDS", 300),

		// OpenTelemetry
		OTelEnabled:              getEnvWithDefault("OTEL_ENABLED", "false") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "pc28"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelExportIntervalMillis: getIntWithDefault("OTEL_EXPORT_INTERVAL_MILLIS", 60000),

		// Logging
		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),

		// Environment
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
	}

	config.Sources = DefaultSources()
	if config.SourcesFile != "" {
		sources, err := LoadSources(config.SourcesFile)
		if err != nil {
			return nil, err
		}
		config.Sources = sources
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		// If DatabaseName is provided, ensure it's not empty
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
		if config.SyncDenseSeconds <= 0 || config.SyncSparseSeconds <= 0 {
			return nil, fmt.Errorf("SYNC_DENSE_SECONDS and SYNC_SPARSE_SECONDS must be positive")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntWithDefault parses an integer environment variable, ignoring malformed values
func getIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:            "test",
		HTTPAddr:               ":0",
		AdminToken:             "test-admin-token",
		Sources:                DefaultSources(),
		SyncDenseSeconds:       5,
		SyncSparseSeconds:      60,
		SyncDenseWindowSeconds: 60,
		StaleBufferSeconds:     30,
		StaleThreshold:         3,
		SettingsRefreshSeconds: 300,
		OTelExporterType:       "none",
		LogLevel:               "info",
	}
}
