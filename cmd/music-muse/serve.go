package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justestif/go-music-muse/internal/web"
	assets "github.com/justestif/go-music-muse/web"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			database, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			templates, err := assets.Templates()
			if err != nil {
				return fmt.Errorf("creating templates filesystem: %w", err)
			}
			static, err := assets.Static()
			if err != nil {
				return fmt.Errorf("creating static filesystem: %w", err)
			}

			srv := a.cfg.Server
			sec := a.cfg.Security
			server, err := web.NewServer(web.ServerConfig{
				Addr:              srv.Addr,
				TemplatesFS:       templates,
				StaticFS:          static,
				Engine:            a.newEngine(database),
				Events:            database.Events(),
				Health:            database,
				RateLimitRequests: sec.RateLimitRequests,
				RateLimitWindow:   sec.RateLimitWindow,
				CORSOrigins:       sec.CORSOrigins,
				ReadTimeout:       srv.ReadTimeout,
				WriteTimeout:      srv.WriteTimeout,
				IdleTimeout:       srv.IdleTimeout,
				ShutdownTimeout:   srv.ShutdownTimeout,
			})
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}

			return server.Run(ctx)
		},
	}
}
