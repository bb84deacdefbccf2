// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"incidentmap/internal/domain/incident"
)

// Feed sources
const (
	FeedHTTP = "http"
	FeedNATS = "nats"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Version     string
	LogLevel    string
	LogJSON     bool
	Server      ServerConfig
	Diagnostics DiagnosticsConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Feed        FeedConfig
	Reconcile   ReconcileConfig
	Labels      incident.LabelTable
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// DiagnosticsConfig holds the metrics/debug listener configuration
type DiagnosticsConfig struct {
	Enabled     bool
	Host        string
	Port        int
	CorsOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	Enabled        bool
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
	EventsTopic    string
}

// FeedConfig holds log feed configuration
type FeedConfig struct {
	Source     string
	URL        string
	Timeout    time.Duration
	Subject    string
	BufferSize int
}

// ReconcileConfig holds reconciliation and decay configuration
type ReconcileConfig struct {
	PollInterval  time.Duration
	ExpireWindow  time.Duration
	MinOpacity    float64
	FadeThreshold float64
	MaxHistory    int
	MaxSidebar    int
	MaxErrors     int
	TimeZone      string
}

// Load loads configuration from a .env file (if present) and environment variables
func Load() (Config, error) {
	// a missing .env file is not an error
	_ = godotenv.Load()

	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Version:     getEnv("APP_VERSION", "dev"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogJSON:     getEnvAsBool("LOG_JSON", false),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Diagnostics: DiagnosticsConfig{
			Enabled:     getEnvAsBool("DIAG_ENABLED", true),
			Host:        getEnv("DIAG_HOST", "127.0.0.1"),
			Port:        getEnvAsInt("DIAG_PORT", 9090),
			CorsOrigins: getEnvAsSlice("DIAG_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Enabled:      getEnvAsBool("DB_ENABLED", false),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "incidentmap"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			Enabled:        getEnvAsBool("NATS_ENABLED", false),
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
			EventsTopic:    getEnv("NATS_EVENTS_TOPIC", "incidentmap"),
		},
		Feed: FeedConfig{
			Source:     getEnv("FEED_SOURCE", FeedHTTP),
			URL:        getEnv("FEED_URL", "http://localhost:8000/log"),
			Timeout:    getEnvAsDuration("FEED_TIMEOUT", 10*time.Second),
			Subject:    getEnv("FEED_SUBJECT", "incidentmap.log"),
			BufferSize: getEnvAsInt("FEED_BUFFER_SIZE", 1000),
		},
		Reconcile: ReconcileConfig{
			PollInterval:  getEnvAsDuration("POLL_INTERVAL", 5*time.Second),
			ExpireWindow:  getEnvAsDuration("EXPIRE_WINDOW", time.Hour),
			MinOpacity:    getEnvAsFloat("MIN_MARKER_OPACITY", 0.1),
			FadeThreshold: getEnvAsFloat("FADE_THRESHOLD", 0.1),
			MaxHistory:    getEnvAsInt("MAX_MARKER_HISTORY", 100),
			MaxSidebar:    getEnvAsInt("MAX_SIDEBAR_ENTRIES", 500),
			MaxErrors:     getEnvAsInt("MAX_FETCH_ERRORS", 100),
			TimeZone:      getEnv("TIME_ZONE", "Local"),
		},
		Labels: incident.DefaultLabels(),
	}

	if path := getEnv("LABELS_FILE", ""); path != "" {
		labels, err := LoadLabels(path)
		if err != nil {
			return config, err
		}
		config.Labels = labels
	}

	return config, validate(config)
}

// labelsFile is the YAML layout of LABELS_FILE:
//
//	labels:
//	  fire: "🔥"
//	  other: ""
type labelsFile struct {
	Labels map[string]string `yaml:"labels"`
}

// LoadLabels reads a label table from a YAML file. The "other" label is
// always present with an empty glyph unless the file overrides it.
func LoadLabels(path string) (incident.LabelTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading labels file: %w", err)
	}

	var f labelsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("error parsing labels file: %w", err)
	}
	if len(f.Labels) == 0 {
		return nil, fmt.Errorf("labels file %s defines no labels", path)
	}

	table := incident.LabelTable{incident.LabelOther: ""}
	for name, glyph := range f.Labels {
		table[name] = glyph
	}
	return table, nil
}

// Location resolves the configured time zone
func (c ReconcileConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.TimeZone)
}

// validate checks if config is valid
func validate(config Config) error {
	r := config.Reconcile
	if r.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if r.ExpireWindow <= 0 {
		return fmt.Errorf("expire window must be positive")
	}
	if r.MinOpacity <= 0 || r.MinOpacity > 1 {
		return fmt.Errorf("min marker opacity must be in (0, 1], got %v", r.MinOpacity)
	}
	if r.FadeThreshold <= 0 || r.FadeThreshold > 1 {
		return fmt.Errorf("fade threshold must be in (0, 1], got %v", r.FadeThreshold)
	}
	if _, err := r.Location(); err != nil {
		return fmt.Errorf("invalid time zone %q: %w", r.TimeZone, err)
	}

	switch config.Feed.Source {
	case FeedHTTP:
		if config.Feed.URL == "" {
			return fmt.Errorf("feed url must be set for the http feed")
		}
	case FeedNATS:
		if !config.NATS.Enabled {
			return fmt.Errorf("the nats feed requires NATS_ENABLED")
		}
	default:
		return fmt.Errorf("unknown feed source %q", config.Feed.Source)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
