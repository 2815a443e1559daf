// Package config loads runtime settings from .env, an optional YAML file and
// the process environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Supported DB_DRIVER values
const (
	DriverArango   = "arango"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds runtime settings for the auth service
type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	BodyLimitMB int    `yaml:"body_limit_mb"`

	DBDriver    string       `yaml:"db_driver"`
	Arango      ArangoConfig `yaml:"arango"`
	DatabaseURL string       `yaml:"database_url"`

	JWTSecret    string        `yaml:"jwt_secret"`
	JWTExpiresIn time.Duration `yaml:"-"`

	FrontendURLs []string `yaml:"frontend_urls"`

	RateLimitWindow      time.Duration `yaml:"-"`
	RateLimitMax         int           `yaml:"rate_limit_max"`
	AuthRateLimitMax     int           `yaml:"auth_rate_limit_max"`
	RegisterRateLimitMax int           `yaml:"register_rate_limit_max"`
	RedisURL             string        `yaml:"redis_url"`

	Kafka KafkaConfig `yaml:"kafka"`

	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"-"`
}

// ArangoConfig is the ArangoDB connection definition
type ArangoConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"`
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
}

// KafkaConfig locates the broker that receives account events. Publishing
// is disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	Username string   `yaml:"username"`
	Password string   `yaml:"-"`
}

// fileOverlay holds the string forms of fields that need parsing
type fileOverlay struct {
	Config          `yaml:",inline"`
	JWTExpiresIn    string `yaml:"jwt_expires_in"`
	RateLimitWindow string `yaml:"rate_limit_window"`
}

// Default returns the development defaults
func Default() *Config {
	return &Config{
		Port:        "5000",
		Environment: "development",
		LogLevel:    "info",
		BodyLimitMB: 10,
		DBDriver:    DriverArango,
		Arango: ArangoConfig{
			Host:     "localhost",
			Port:     "8529",
			User:     "root",
			Database: "echolearn",
		},
		JWTExpiresIn:         7 * 24 * time.Hour,
		FrontendURLs:         []string{"http://localhost:3000"},
		RateLimitWindow:      15 * time.Minute,
		RateLimitMax:         100,
		AuthRateLimitMax:     10,
		RegisterRateLimitMax: 3,
		Kafka:                KafkaConfig{Topic: "account-events"},
	}
}

// Load builds a Config from defaults, .env, the YAML file named by
// CONFIG_FILE and finally environment variables.
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	return c.applyYAML(raw)
}

func (c *Config) applyYAML(raw []byte) error {
	overlay := fileOverlay{Config: *c}
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	next := overlay.Config
	if overlay.JWTExpiresIn != "" {
		d, err := ParseLifetime(overlay.JWTExpiresIn)
		if err != nil {
			return fmt.Errorf("jwt_expires_in: %w", err)
		}
		next.JWTExpiresIn = d
	}
	if overlay.RateLimitWindow != "" {
		d, err := ParseLifetime(overlay.RateLimitWindow)
		if err != nil {
			return fmt.Errorf("rate_limit_window: %w", err)
		}
		next.RateLimitWindow = d
	}
	*c = next
	return nil
}

func (c *Config) loadEnv() error {
	c.Port = GetEnvDefault("PORT", c.Port)
	c.Environment = GetEnvDefault("NODE_ENV", c.Environment)
	c.LogLevel = GetEnvDefault("LOG_LEVEL", c.LogLevel)
	c.DBDriver = strings.ToLower(GetEnvDefault("DB_DRIVER", c.DBDriver))
	c.DatabaseURL = GetEnvDefault("DATABASE_URL", c.DatabaseURL)
	c.JWTSecret = GetEnvDefault("JWT_SECRET", c.JWTSecret)
	c.RedisURL = GetEnvDefault("REDIS_URL", c.RedisURL)
	c.AdminEmail = GetEnvDefault("ADMIN_EMAIL", c.AdminEmail)
	c.AdminPassword = GetEnvDefault("ADMIN_PASSWORD", c.AdminPassword)

	c.Arango.Host = GetEnvDefault("ARANGO_HOST", c.Arango.Host)
	c.Arango.Port = GetEnvDefault("ARANGO_PORT", c.Arango.Port)
	c.Arango.User = GetEnvDefault("ARANGO_USER", c.Arango.User)
	c.Arango.Password = GetEnvDefault("ARANGO_PASS", c.Arango.Password)
	c.Arango.URL = GetEnvDefault("ARANGO_URL", c.Arango.URL)
	c.Arango.Database = GetEnvDefault("ARANGO_DB", c.Arango.Database)
	if c.Arango.URL == "" {
		c.Arango.URL = "http://" + c.Arango.Host + ":" + c.Arango.Port
	}

	if v, ok := os.LookupEnv("FRONTEND_URL"); ok {
		c.FrontendURLs = splitList(v)
	}
	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		c.Kafka.Brokers = splitList(v)
	}
	c.Kafka.Topic = GetEnvDefault("KAFKA_TOPIC", c.Kafka.Topic)
	c.Kafka.Username = GetEnvDefault("KAFKA_API_KEY", c.Kafka.Username)
	c.Kafka.Password = GetEnvDefault("KAFKA_API_SECRET", c.Kafka.Password)
	if v, ok := os.LookupEnv("JWT_EXPIRES_IN"); ok {
		d, err := ParseLifetime(v)
		if err != nil {
			return fmt.Errorf("JWT_EXPIRES_IN: %w", err)
		}
		c.JWTExpiresIn = d
	}
	if v, ok := os.LookupEnv("RATE_LIMIT_WINDOW"); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_WINDOW: %w", err)
		}
		c.RateLimitWindow = time.Duration(ms) * time.Millisecond
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"RATE_LIMIT_MAX", &c.RateLimitMax},
		{"AUTH_RATE_LIMIT_MAX", &c.AuthRateLimitMax},
		{"REGISTER_RATE_LIMIT_MAX", &c.RegisterRateLimitMax},
		{"BODY_LIMIT_MB", &c.BodyLimitMB},
	}
	for _, i := range ints {
		v, ok := os.LookupEnv(i.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", i.key, err)
		}
		*i.dst = n
	}
	return nil
}

// Validate rejects settings the service cannot start with
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	switch c.DBDriver {
	case DriverArango, DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when DB_DRIVER is postgres")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTExpiresIn <= 0 {
		return fmt.Errorf("JWT_EXPIRES_IN must be positive")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("KAFKA_TOPIC must be set when KAFKA_BROKERS is")
	}
	if c.RateLimitMax <= 0 || c.AuthRateLimitMax <= 0 || c.RegisterRateLimitMax <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	return nil
}

// IsProduction reports whether internal error details must be hidden
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// GetEnvDefault is a convenience function for handling env vars
func GetEnvDefault(key, defVal string) string {
	val, ex := os.LookupEnv(key) // get the env var
	if !ex {                     // not found return default
		return defVal
	}
	return val // return value for env var
}

// ParseLifetime accepts Go durations ("168h", "90m") and whole days ("7d")
func ParseLifetime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
