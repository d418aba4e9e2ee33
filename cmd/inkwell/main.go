package main

import (
	"context"
	"io"
	"os"

	"github.com/jmoiron/sqlx"

	"inkwell/internal/config"
	"inkwell/internal/http/handlers"
	applog "inkwell/internal/log"
	"inkwell/internal/repos"
)

func main() {
	logger := applog.Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}
	applog.SetLevel(cfg.LogLevel)

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Warn().Err(err).Str("file", cfg.LogFile).Msg("could not open log file")
		} else {
			defer f.Close()
			applog.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := openStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("database")
	}
	defer db.Close()

	app := handlers.NewApp(cfg, handlers.NewDeps(db, cfg))
	logger.Info().Str("port", cfg.Port).Msg("listening")
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("listen")
	}
}

// openStore seeds the built-in demo data unless SEED_FILE points somewhere else.
func openStore(cfg config.Config) (*sqlx.DB, error) {
	if cfg.SeedFile == "" {
		return repos.OpenDB(cfg.DBDSN)
	}
	db, err := repos.Connect(cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := repos.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := repos.SeedFromFile(context.Background(), db, cfg.SeedFile); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
