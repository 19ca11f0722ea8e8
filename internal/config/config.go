// package config loads application configuration from environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// api client
	APIBaseURL      string
	RequestTimeout  time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
	PageSize        int
	SalaryDomainMin int
	SalaryDomainMax int

	// session persistence
	SessionStore string // sqlite, redis, memory
	SessionDB    string
	RedisURL     string

	// notifications
	NatsURL       string
	NotifySubject string

	// watcher
	WatchSchedule string

	// view bridge
	HTTPPort    int
	CORSOrigins []string

	// development backend
	APIPort      int
	DatabaseURL  string
	StorageDir   string
	SeedFixtures bool

	// logging
	LogLevel string
	LogFile  string
}

// Overlay is the optional YAML file pointed to by KANDRA_CONFIG.
// Zero values leave the environment-derived settings untouched.
type Overlay struct {
	APIBaseURL string `yaml:"api_base_url"`
	PageSize   int    `yaml:"page_size"`
	Salary     struct {
		Min int `yaml:"min"`
		Max int `yaml:"max"`
	} `yaml:"salary_domain"`
	WatchSchedule string   `yaml:"watch_schedule"`
	CORSOrigins   []string `yaml:"cors_origins"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		APIBaseURL:      getEnv("KANDRA_API_URL", "http://localhost:3100/api"),
		RequestTimeout:  getEnvDuration("KANDRA_REQUEST_TIMEOUT", 10*time.Second),
		RateLimitRPS:    getEnvFloat("KANDRA_RATE_LIMIT_RPS", 10),
		RateLimitBurst:  getEnvInt("KANDRA_RATE_LIMIT_BURST", 5),
		PageSize:        getEnvInt("KANDRA_PAGE_SIZE", 12),
		SalaryDomainMin: getEnvInt("KANDRA_SALARY_MIN", 10),
		SalaryDomainMax: getEnvInt("KANDRA_SALARY_MAX", 100),
		SessionStore:    getEnv("SESSION_STORE", "sqlite"),
		SessionDB:       getEnv("SESSION_DB", "./data/session.db"),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		NatsURL:         getEnv("NATS_URL", ""),
		NotifySubject:   getEnv("NOTIFY_SUBJECT", "kandra.notifications"),
		WatchSchedule:   getEnv("WATCH_SCHEDULE", "@every 5m"),
		HTTPPort:        getEnvInt("HTTP_PORT", 3200),
		CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		APIPort:         getEnvInt("API_PORT", 3100),
		DatabaseURL:     getEnv("DATABASE_URL", "./data/kandra.db"),
		StorageDir:      getEnv("STORAGE_DIR", "./storage"),
		SeedFixtures:    getEnvBool("SEED_FIXTURES", true),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
	}

	if path := os.Getenv("KANDRA_CONFIG"); path != "" {
		if err := cfg.applyOverlayFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks invariants the rest of the program relies on.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("KANDRA_API_URL is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.SalaryDomainMin >= c.SalaryDomainMax {
		return fmt.Errorf("salary domain min %d must be below max %d", c.SalaryDomainMin, c.SalaryDomainMax)
	}
	switch c.SessionStore {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("unknown session store %q", c.SessionStore)
	}
	return nil
}

func (c *Config) applyOverlayFile(path string) error {
	o, err := ReadOverlay(path)
	if err != nil {
		return err
	}

	c.ApplyOverlay(o)
	return nil
}

// ReadOverlay parses an overlay file. Unknown keys are rejected so a typo
// does not silently fall back to the environment value.
func ReadOverlay(path string) (Overlay, error) {
	var o Overlay

	data, err := os.ReadFile(path)
	if err != nil {
		return o, fmt.Errorf("read config overlay: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil && !errors.Is(err, io.EOF) {
		return o, fmt.Errorf("parse config overlay: %w", err)
	}

	if o.PageSize < 0 {
		return o, fmt.Errorf("page_size must not be negative")
	}
	if (o.Salary.Min != 0 || o.Salary.Max != 0) && o.Salary.Min >= o.Salary.Max {
		return o, fmt.Errorf("salary_domain min %d must be below max %d", o.Salary.Min, o.Salary.Max)
	}
	return o, nil
}

// ApplyOverlay merges the non-zero fields of o into c.
func (c *Config) ApplyOverlay(o Overlay) {
	if o.APIBaseURL != "" {
		c.APIBaseURL = o.APIBaseURL
	}
	if o.PageSize > 0 {
		c.PageSize = o.PageSize
	}
	if o.Salary.Min != 0 || o.Salary.Max != 0 {
		c.SalaryDomainMin = o.Salary.Min
		c.SalaryDomainMax = o.Salary.Max
	}
	if o.WatchSchedule != "" {
		c.WatchSchedule = o.WatchSchedule
	}
	if len(o.CORSOrigins) > 0 {
		c.CORSOrigins = o.CORSOrigins
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
