package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/justestif/go-music-muse/internal/config"
	"github.com/justestif/go-music-muse/internal/db"
	"github.com/justestif/go-music-muse/internal/engine"
	"github.com/justestif/go-music-muse/internal/logging"
)

// app carries state shared by subcommands after the config is loaded.
type app struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "music-muse",
		Short:         "Ask questions about your listening history",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "",
		"path to a YAML config file (default $"+config.PathEnvVar+" or ./config.yaml)")

	root.AddCommand(
		newServeCmd(a),
		newAskCmd(a),
		newMigrateCmd(a),
		newEventsCmd(a),
		newRulesCmd(),
	)
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	return nil
}

func (a *app) openDB(ctx context.Context) (*db.DB, error) {
	database, err := db.New(ctx, a.cfg.DatabaseURL(), a.cfg.Database.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return database, nil
}

func (a *app) newEngine(database *db.DB) *engine.Engine {
	q := a.cfg.Query
	return engine.New(database.Listening(), database.Events(),
		engine.WithTimeout(q.Timeout),
		engine.WithBreaker(engine.BreakerConfig{
			MaxRequests:      q.BreakerHalfOpen,
			Interval:         q.BreakerResetTime,
			Timeout:          q.BreakerOpenFor,
			FailureThreshold: q.BreakerFailures,
		}),
	)
}
