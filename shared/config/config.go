package config

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	Port          string        `yaml:"port" validate:"required"`
	Env           string        `yaml:"env"`
	SecureCookies bool          `yaml:"secure_cookies"`
	Log           Log           `yaml:"log"`
	Auth          Auth          `yaml:"auth"`
	Session       Session       `yaml:"session"`
	Notification  Notification  `yaml:"notification"`
	RateLimit     RateLimit     `yaml:"rate_limit"`
	Home          Home          `yaml:"home"`
	Otel          Otel          `yaml:"otel"`
	Pg            Pg            `yaml:"pg"`
	CORSOrigins   []string      `yaml:"cors_origins"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Auth describes the hosted authentication service.
type Auth struct {
	URL            string        `yaml:"url" validate:"required,url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ResolveTimeout time.Duration `yaml:"resolve_timeout"` // how long guards wait for an unresolved session
	RefreshMargin  time.Duration `yaml:"refresh_margin"`  // refresh tokens that expire sooner than this
}

type Session struct {
	Storage      string        `yaml:"storage" validate:"omitempty,oneof=memory postgres"`
	TTL          time.Duration `yaml:"ttl"`            // lifetime of a stored visitor session
	StoreIdleTTL time.Duration `yaml:"store_idle_ttl"` // idle time before a visitor's store is torn down
}

type Notification struct {
	DisplayFor    time.Duration `yaml:"display_for"`
	NavigateAfter time.Duration `yaml:"navigate_after"`
}

type RateLimit struct {
	FormsPerMinute  float64 `yaml:"forms_per_minute"` // per client IP
	Burst           int     `yaml:"burst"`
	EmailsPerMinute float64 `yaml:"emails_per_minute"` // per submitted email
	EmailBurst      int     `yaml:"email_burst"`
}

type Home struct {
	WelcomeMarkdown string `yaml:"welcome_markdown"`
}

type Otel struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type Pg struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	User   string `yaml:"user"`
	Dbname string `yaml:"dbname"`
}

type Private struct {
	AuthAnonKey   string `yaml:"auth_anon_key" validate:"required"`
	JwtSecret     string `yaml:"jwt_secret"` // optional, enables local access token verification
	PgPassword    string `yaml:"pg_password"`
	StorageSecret string `yaml:"storage_secret"` // seals tokens stored in postgres
}

func (c *Config) ApplyDefaults() {
	p := &c.Public
	setDefault(&p.Auth.RequestTimeout, 5*time.Second)
	setDefault(&p.Auth.ResolveTimeout, 2*time.Second)
	setDefault(&p.Auth.RefreshMargin, time.Minute)
	setDefault(&p.Session.TTL, 30*24*time.Hour)
	setDefault(&p.Session.StoreIdleTTL, 30*time.Minute)
	setDefault(&p.Notification.DisplayFor, 5*time.Second)
	setDefault(&p.Notification.NavigateAfter, time.Second)
	setDefault(&p.ReadTimeout, 5*time.Second)
	setDefault(&p.WriteTimeout, 10*time.Second)
	if p.Session.Storage == "" {
		p.Session.Storage = StorageMemory
	}
	if p.RateLimit.FormsPerMinute <= 0 {
		p.RateLimit.FormsPerMinute = 20
	}
	if p.RateLimit.Burst <= 0 {
		p.RateLimit.Burst = 5
	}
	if p.RateLimit.EmailsPerMinute <= 0 {
		p.RateLimit.EmailsPerMinute = 5
	}
	if p.RateLimit.EmailBurst <= 0 {
		p.RateLimit.EmailBurst = 3
	}
	if p.Otel.ServiceName == "" {
		p.Otel.ServiceName = "authgate"
	}
	if p.Otel.SampleRatio <= 0 {
		p.Otel.SampleRatio = 0.1
	}
}

func setDefault(d *time.Duration, v time.Duration) {
	if *d <= 0 {
		*d = v
	}
}

// Validate checks required fields and cross-field constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Public.Session.Storage == StoragePostgres {
		if c.Public.Pg.Host == "" || c.Public.Pg.Dbname == "" {
			return fmt.Errorf("invalid config: pg.host and pg.dbname are required for postgres storage")
		}
		if c.Private.StorageSecret == "" {
			return fmt.Errorf("invalid config: storage_secret is required for postgres storage")
		}
	}
	return nil
}

// applyEnv overrides YAML values from the environment.
// KEY_FILE variants are read from disk first (docker secrets).
func (c *Config) applyEnv() {
	if v := getEnv("PORT"); v != "" {
		c.Public.Port = v
	}
	if v := getEnv("ENV"); v != "" {
		c.Public.Env = v
	}
	if v := getEnv("AUTH_URL"); v != "" {
		c.Public.Auth.URL = v
	}
	if v := getEnv("LOG_LEVEL"); v != "" {
		c.Public.Log.Level = v
	}
	if v := getEnv("SESSION_STORAGE"); v != "" {
		c.Public.Session.Storage = v
	}
	if v := getEnv("SECURE_COOKIES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Public.SecureCookies = b
		}
	}
	if v := getEnv("OTEL_ENABLED"); v != "" {
		c.Public.Otel.Enabled = v == "true"
	}
	if v := getEnv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Public.Otel.Endpoint = v
	}
	if v := getEnv("AUTH_ANON_KEY"); v != "" {
		c.Private.AuthAnonKey = v
	}
	if v := getEnv("JWT_SECRET"); v != "" {
		c.Private.JwtSecret = v
	}
	if v := getEnv("PG_PASSWORD"); v != "" {
		c.Private.PgPassword = v
	}
	if v := getEnv("STORAGE_SECRET"); v != "" {
		c.Private.StorageSecret = v
	}
}

func getEnv(key string) string {
	if file := os.Getenv(key + "_FILE"); file != "" {
		if content, err := os.ReadFile(file); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return os.Getenv(key)
}

func mustLoadPath(configPath string, output interface{}) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file")
	}

	if err := yaml.Unmarshal(configFile, output); err != nil {
		panic("can't unmarshal config file")
	}
}

// MustLoad reads public.yaml and private.yaml from configFolder, applies
// environment overrides and defaults, and panics on invalid configuration.
func MustLoad(configFolder string) *Config {
	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)

	cfg := &Config{Public: public, Private: private}
	cfg.applyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		panic(err.Error())
	}
	return cfg
}
