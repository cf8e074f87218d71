// Command usertoken runs the Google login backend.
package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/tokenmarket/usertoken/auth"
	"github.com/tokenmarket/usertoken/config"
	"github.com/tokenmarket/usertoken/logger"
	"github.com/tokenmarket/usertoken/postgres"
	"github.com/tokenmarket/usertoken/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.New()
	if err != nil {
		return err
	}

	l := logger.New(
		logger.WithEnv(cfg.Env.String()),
		logger.WithLevel(cfg.LogLevel),
	)

	db, err := postgres.Connect(&postgres.CxnConfig{
		URL:      cfg.DatabaseURL,
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		Name:     cfg.DatabaseName,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		SSLMode:  cfg.DatabaseSSLMode,
	}, postgres.Migrations, cfg.Env)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}

	authSvc, err := auth.NewService(
		cfg.JWTSecretKey,
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.CallbackURL(),
		cfg.TokenExpiry,
		l,
	)
	if err != nil {
		return fmt.Errorf("constructing auth service: %w", err)
	}

	return server.New(cfg, l, authSvc, postgres.NewUserTokenStore(db)).Serve()
}
