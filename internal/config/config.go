package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	applog "inkwell/internal/log"
)

// ErrNoSecret is returned by Load when JWT_SECRET is unset.
var ErrNoSecret = errors.New("config: JWT_SECRET must be set")

type Config struct {
	Port         string        `envconfig:"PORT" default:"8081"`
	DBDSN        string        `envconfig:"DB_DSN" default:"inkwell.db"`
	LogFile      string        `envconfig:"LOG_FILE" default:"./inkwell.log"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`
	SeedFile     string        `envconfig:"SEED_FILE"`
	JWTSecret    string        `envconfig:"JWT_SECRET"`
	TokenTTL     time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	CookieSecure bool          `envconfig:"COOKIE_SECURE" default:"false"`
	// BodyLimit caps request bodies in bytes.
	BodyLimit int `envconfig:"BODY_LIMIT" default:"1048576"`
	// Requests per minute per client IP, and login attempts per 10 minutes.
	RateLimit  int `envconfig:"RATE_LIMIT" default:"60"`
	LoginLimit int `envconfig:"LOGIN_LIMIT" default:"5"`
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err == nil {
		applog.Logger().Info().Msg("[config] loaded .env")
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return Config{}, ErrNoSecret
	}
	applog.Logger().Info().
		Str("port", cfg.Port).
		Str("db_dsn", cfg.DBDSN).
		Str("log_file", cfg.LogFile).
		Dur("token_ttl", cfg.TokenTTL).
		Msg("[config]")
	return cfg, nil
}

// Test returns a config suitable for in-memory runs.
func Test() Config {
	return Config{
		Port:       "0",
		DBDSN:      ":memory:",
		LogLevel:   "debug",
		JWTSecret:  "test-secret",
		TokenTTL:   time.Hour,
		BodyLimit:  1 << 20,
		RateLimit:  1000,
		LoginLimit: 5,
	}
}
