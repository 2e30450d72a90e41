package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultAPIAddr         = ":8081"
	defaultUsersAPIURL     = "http://localhost:8081"
	defaultUsersAPITimeout = 10 * time.Second
	defaultSessionLifetime = 12 * time.Hour

	SessionStoreMemory   = "memory"
	SessionStorePostgres = "postgres"
)

type Config struct {
	DatabaseURL      string
	HTTPAddr         string
	APIAddr          string
	MetricsAddr      string
	UsersAPIURL      string
	UsersAPIToken    string
	UsersAPITimeout  time.Duration
	AuthCookieSecure bool
	SessionStore     string
	SessionLifetime  time.Duration
}

type LoadOptions struct {
	RequireDatabaseURL bool
}

func Load() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: true})
}

func LoadOptionalDB() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: false})
}

func LoadWithOptions(opts LoadOptions) (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	cfg := Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		HTTPAddr:         getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		APIAddr:          getenvDefault("API_ADDR", defaultAPIAddr),
		MetricsAddr:      strings.TrimSpace(os.Getenv("METRICS_ADDR")),
		UsersAPIURL:      strings.TrimRight(strings.TrimSpace(getenvDefault("USERS_API_URL", defaultUsersAPIURL)), "/"),
		UsersAPIToken:    strings.TrimSpace(os.Getenv("USERS_API_TOKEN")),
		UsersAPITimeout:  getenvDurationDefault("USERS_API_TIMEOUT", defaultUsersAPITimeout),
		AuthCookieSecure: getenvBoolDefault("AUTH_COOKIE_SECURE", false),
		SessionStore:     strings.ToLower(strings.TrimSpace(getenvDefault("SESSION_STORE", SessionStoreMemory))),
		SessionLifetime:  getenvDurationDefault("SESSION_LIFETIME", defaultSessionLifetime),
	}

	switch cfg.SessionStore {
	case SessionStoreMemory, SessionStorePostgres:
	default:
		return cfg, fmt.Errorf("SESSION_STORE must be one of: %s, %s", SessionStoreMemory, SessionStorePostgres)
	}

	if u, err := url.Parse(cfg.UsersAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return cfg, fmt.Errorf("USERS_API_URL must be an absolute URL, got %q", cfg.UsersAPIURL)
	}

	if opts.RequireDatabaseURL && cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}
	if cfg.SessionStore == SessionStorePostgres && cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required when SESSION_STORE=postgres")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getenvBoolDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch v {
	case "1":
		return true
	case "0":
		return false
	default:
		return def
	}
}
