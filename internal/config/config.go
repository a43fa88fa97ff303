package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	Database   DatabaseConfig
	Embedding  EmbeddingConfig
	Matching   MatchingConfig
	Attendance AttendancePolicyConfig
	Kiosk      KioskConfig
	Storage    StorageConfig
	Auth       AuthConfig
	Web        WebConfig
	Telemetry  TelemetryConfig
	Log        LogConfig
	Thresholds ThresholdsConfig
}

type DatabaseConfig struct {
	Driver       string // postgres, sqlite or mysql (default postgres)
	URL          string // connection URL or DSN
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
	Dim int    // defaults to 128
}

type MatchingConfig struct {
	Metric    string  // cosine or euclidean
	Threshold float64 // accepted when distance < threshold
}

type AttendancePolicyConfig struct {
	CooldownMillis int64  // minimum interval between two marks of the same person
	Timezone       string // IANA zone used for daily reports
}

type KioskConfig struct {
	ResultHold time.Duration // frames are dropped for this long after each attempt
}

type StorageConfig struct {
	FaceDir     string // directory for enrolled face crops
	JPEGQuality int
}

type AuthConfig struct {
	Username     string
	PasswordHash string // bcrypt hash of the operator password
	JWTSecret    string
	TokenTTL     time.Duration
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type TelemetryConfig struct {
	SentryDSN   string
	Environment string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

type ThresholdsConfig struct {
	DefaultMetric string                     `yaml:"default_metric"`
	Metrics       map[string]MetricThreshold `yaml:"metrics"`
}

type MetricThreshold struct {
	Threshold float64 `yaml:"threshold"`
}

// AttendanceConfig is the matching and cooldown configuration handed to the check-in service.
type AttendanceConfig struct {
	DistanceThreshold float64
	CooldownMillis    int64
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envInt64 is envInt for non-negative int64 values.
func envInt64(key string, defaultVal int64) int64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat returns 0 when the variable is unset so callers can apply metric defaults.
func envFloat(key string) float64 {
	s := os.Getenv(key)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func loadThresholds() ThresholdsConfig {
	var t ThresholdsConfig
	if err := yaml.Unmarshal(thresholdsYAML, &t); err != nil {
		// This is an embedded file so this error should never happen in practice.
		panic("failed to unmarshal embedded thresholds.yaml: " + err.Error())
	}
	return t
}

func Load() *Config {
	thresholds := loadThresholds()

	metric := strings.ToLower(envString("MATCH_METRIC", thresholds.DefaultMetric))
	threshold := envFloat("MATCH_THRESHOLD")
	if threshold == 0 {
		threshold = thresholds.DefaultThreshold(metric)
	}

	return &Config{
		Database: DatabaseConfig{
			Driver:       strings.ToLower(envString("DATABASE_DRIVER", "postgres")),
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
			Dim: envInt("EMBEDDING_DIM", 128),
		},
		Matching: MatchingConfig{
			Metric:    metric,
			Threshold: threshold,
		},
		Attendance: AttendancePolicyConfig{
			CooldownMillis: envInt64("ATTENDANCE_COOLDOWN_MS", 5*60*1000),
			Timezone:       envString("ATTENDANCE_TIMEZONE", "Local"),
		},
		Kiosk: KioskConfig{
			ResultHold: envDuration("KIOSK_RESULT_HOLD", 3*time.Second),
		},
		Storage: StorageConfig{
			FaceDir:     envString("FACE_STORAGE_DIR", "data/faces"),
			JPEGQuality: envInt("FACE_JPEG_QUALITY", 90),
		},
		Auth: AuthConfig{
			Username:     envString("AUTH_USERNAME", "admin"),
			PasswordHash: os.Getenv("AUTH_PASSWORD_HASH"),
			JWTSecret:    os.Getenv("AUTH_JWT_SECRET"),
			TokenTTL:     envDuration("AUTH_TOKEN_TTL", 24*time.Hour),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Telemetry: TelemetryConfig{
			SentryDSN:   os.Getenv("SENTRY_DSN"),
			Environment: envString("SENTRY_ENVIRONMENT", "production"),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "text"),
		},
		Thresholds: thresholds,
	}
}

// DefaultThreshold returns the embedded threshold for a metric, or 0 if unknown.
func (t ThresholdsConfig) DefaultThreshold(metric string) float64 {
	if m, ok := t.Metrics[metric]; ok {
		return m.Threshold
	}
	return 0
}

// AttendanceConfig returns the matching threshold and cooldown as one value.
func (c *Config) AttendanceConfig() AttendanceConfig {
	return AttendanceConfig{
		DistanceThreshold: c.Matching.Threshold,
		CooldownMillis:    c.Attendance.CooldownMillis,
	}
}

// Cooldown returns the cooldown as a duration.
func (c AttendanceConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMillis) * time.Millisecond
}

// Location resolves the report timezone.
func (c *AttendancePolicyConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks the settings the matching pipeline depends on.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := c.Thresholds.Metrics[c.Matching.Metric]; !ok {
		errs = append(errs, fmt.Errorf("unknown MATCH_METRIC %q", c.Matching.Metric))
	}
	if c.Matching.Threshold <= 0 {
		errs = append(errs, errors.New("MATCH_THRESHOLD must be positive"))
	}
	if c.Attendance.CooldownMillis < 0 {
		errs = append(errs, errors.New("ATTENDANCE_COOLDOWN_MS must not be negative"))
	}
	if c.Embedding.Dim <= 0 {
		errs = append(errs, errors.New("EMBEDDING_DIM must be positive"))
	}
	if c.Storage.JPEGQuality < 1 || c.Storage.JPEGQuality > 100 {
		errs = append(errs, errors.New("FACE_JPEG_QUALITY must be between 1 and 100"))
	}
	if _, err := c.Attendance.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Auth.JWTSecret != "" && c.Auth.PasswordHash == "" {
		errs = append(errs, errors.New("AUTH_PASSWORD_HASH is required when AUTH_JWT_SECRET is set"))
	}
	return errors.Join(errs...)
}
