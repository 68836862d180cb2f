// Package config loads runtime settings from the environment, after reading
// a .env file when one is present.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tiermaster/backend/internal/models"
)

// AnyTier in MODERATOR_TIERS lets every logged-in user moderate.
const AnyTier = "any"

type Config struct {
	Env  string
	Port int

	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	JWTSecret     string
	SessionTTL    time.Duration
	SessionCookie string
	CookieSecure  bool

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	CORSOrigins []string

	// ModeratorTiers lists the subscription tiers allowed to use admin
	// routes. Empty means any authenticated user.
	ModeratorTiers []models.SubscriptionTier

	OTLPEndpoint string
}

// IsLocal reports whether the server runs in local development mode.
func (c Config) IsLocal() bool {
	return c.Env == "local"
}

// Load reads envFile (ignored when missing) and then the process environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	var cfg Config
	var err error

	cfg.Env = getenv("APP_ENV", "local")

	if cfg.Port, err = intEnv("PORT", 8080); err != nil {
		return Config{}, err
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = dsnFromParts()
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database settings required (DATABASE_URL or DB_HOST/DB_NAME)")
	}
	if cfg.MaxOpenConns, err = intEnv("DB_MAX_OPEN_CONNS", 100); err != nil {
		return Config{}, err
	}
	if cfg.MaxIdleConns, err = intEnv("DB_MAX_IDLE_CONNS", 10); err != nil {
		return Config{}, err
	}
	if cfg.ConnMaxLifetime, err = durationEnv("DB_CONN_MAX_LIFETIME", time.Hour); err != nil {
		return Config{}, err
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET required")
	}
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", 72*time.Hour); err != nil {
		return Config{}, err
	}
	cfg.SessionCookie = getenv("SESSION_COOKIE", "tm_session")
	cfg.CookieSecure = os.Getenv("COOKIE_SECURE") == "true"

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")

	cfg.CORSOrigins = splitList(getenv("CORS_ORIGINS", "*"))

	cfg.ModeratorTiers, err = parseModeratorTiers(getenv("MODERATOR_TIERS", string(models.TierAdmin)))
	if err != nil {
		return Config{}, err
	}

	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	return cfg, nil
}

// dsnFromParts keeps the DB_* variables used by earlier deployments working.
func dsnFromParts() string {
	host := os.Getenv("DB_HOST")
	name := os.Getenv("DB_NAME")
	if host == "" || name == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD")),
		Host:   host + ":" + getenv("DB_PORT", "5432"),
		Path:   "/" + name,
	}
	q := url.Values{}
	q.Set("sslmode", getenv("DB_SSLMODE", "disable"))
	q.Set("TimeZone", "UTC")
	u.RawQuery = q.Encode()
	return u.String()
}

func parseModeratorTiers(raw string) ([]models.SubscriptionTier, error) {
	var tiers []models.SubscriptionTier
	for _, s := range splitList(raw) {
		if strings.EqualFold(s, AnyTier) {
			return nil, nil
		}
		t := models.SubscriptionTier(strings.ToLower(s))
		switch t {
		case models.TierFree, models.TierPremium, models.TierPro, models.TierAdmin:
			tiers = append(tiers, t)
		default:
			return nil, fmt.Errorf("MODERATOR_TIERS: unknown tier %q", s)
		}
	}
	if len(tiers) == 0 {
		return nil, errors.New("MODERATOR_TIERS must name at least one tier or \"any\"")
	}
	return tiers, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func intEnv(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", k, err)
	}
	return n, nil
}

func durationEnv(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", k, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimRight(strings.TrimSpace(p), "/"); p != "" {
			out = append(out, p)
		}
	}
	return out
}
