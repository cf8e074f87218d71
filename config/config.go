// Package config builds the explicit configuration struct the service runs on.
//
// All values come from the environment, with defaults matching a local
// development setup. The struct is constructed once at startup and passed to
// every component; nothing reads the environment after New returns.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	usertoken "github.com/tokenmarket/usertoken"
	"github.com/tokenmarket/usertoken/logger"
)

const defaultTokenExpiry = 30 * 24 * time.Hour

// A Config holds every externally provided setting the service needs.
type Config struct {
	Env      usertoken.Environment
	LogLevel logger.LogLevel

	// URL the client app lives at; login completion redirects here.
	ClientHostURL *url.URL

	// URL this server is reachable at; the OAuth callback derives from it.
	ServerHostURL *url.URL
	Port          string

	// Database connection, either a full URL or individual parts.
	DatabaseURL      string
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string
	DatabaseSSLMode  string

	// Symmetric secret the session credential is signed with.
	JWTSecretKey string
	TokenExpiry  time.Duration

	GoogleClientID     string
	GoogleClientSecret string

	SentryDSN string

	// Optional Redis backend for the idempotency cache.
	RedisURL string
}

// New reads the environment into a Config, applying defaults,
// and validates the settings the service cannot run without.
func New() (*Config, error) {
	c := &Config{
		Env:              envVarOrEnv("ENVIRONMENT", usertoken.Development),
		LogLevel:         envVarOrLogLevel("LOG_LEVEL", logger.LogLevelInfo),
		ClientHostURL:    envVarOrURL("CLIENT_HOST_URL", mustParseURL("http://localhost:3000")),
		ServerHostURL:    envVarOrURL("SERVER_HOST_URL", mustParseURL("http://localhost:3300")),
		Port:             envVarOrString("PORT", "3300"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DatabaseHost:     envVarOrString("DATABASE_HOST", "localhost"),
		DatabasePort:     envVarOrString("DATABASE_PORT", "5432"),
		DatabaseName:     envVarOrString("DATABASE_NAME", "usertoken"),
		DatabaseUser:     os.Getenv("DATABASE_USER"),
		DatabasePassword: os.Getenv("DATABASE_PASSWORD"),
		DatabaseSSLMode:  os.Getenv("DATABASE_SSLMODE"),
		JWTSecretKey:     os.Getenv("JWT_SECRET_KEY"),
		TokenExpiry:      envVarOrSeconds("JWT_TOKEN_EXPIRY", defaultTokenExpiry),
		GoogleClientID:   os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		SentryDSN:          os.Getenv("SENTRY_DSN"),
		RedisURL:           os.Getenv("REDIS_URL"),
	}

	if err := c.valid(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) valid() error {
	if c.JWTSecretKey == "" {
		return fmt.Errorf("%w: JWT_SECRET_KEY cannot be empty", usertoken.ErrBadConfig)
	}

	if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
		return fmt.Errorf("%w: GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET cannot be empty", usertoken.ErrBadConfig)
	}

	return nil
}

// CallbackURL is the OAuth redirect URI registered with the provider.
func (c *Config) CallbackURL() string {
	return c.ServerHostURL.String() + "/user-token/completeGoogleLogin"
}

// envVarOrEnv gets the environment variable from the provided key,
// casts it into an Environment,
// or returns the provided default if the value is not a valid Environment.
func envVarOrEnv(key string, def usertoken.Environment) usertoken.Environment {
	val := os.Getenv(key)
	if val == "" {
		return def
	}

	env := usertoken.Environment(val)
	if err := env.Valid(); err != nil {
		return def
	}

	return env
}

// envVarOrLogLevel gets the environment variable from the provided key,
// creates a logger.LogLevel from the retrieved value,
// or returns the provided default if the value is an unknown level.
func envVarOrLogLevel(key string, def logger.LogLevel) logger.LogLevel {
	val := os.Getenv(key)
	if val == "" {
		return def
	}

	ll := logger.NewLogLevel(val)
	if ll == logger.LogLevelUnk {
		return def
	}

	return ll
}

// envVarOrSeconds gets the environment variable from the provided key,
// parses it as a whole number of seconds,
// or returns the provided default time.Duration.
func envVarOrSeconds(key string, def time.Duration) time.Duration {
	val := os.Getenv(key)
	secs, err := strconv.Atoi(val)
	if err != nil || secs <= 0 {
		return def
	}

	return time.Duration(secs) * time.Second
}

// envVarOrString gets the environment variable from the provided key or the provided default string.
func envVarOrString(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}

	return val
}

// envVarOrURL gets the environment variable from the provided key,
// parses it into a *url.URL, or returns the provided default.
func envVarOrURL(key string, def *url.URL) *url.URL {
	val := os.Getenv(key)
	if val == "" {
		return def
	}

	u, err := url.ParseRequestURI(val)
	if err != nil {
		return def
	}

	return u
}

func mustParseURL(val string) *url.URL {
	u, err := url.Parse(val)
	if err != nil {
		panic(err)
	}

	return u
}
