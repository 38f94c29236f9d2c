// Package api wires configuration, storage, and the HTTP service into the
// api server binary.
package api

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/zikrcircle/zikrcircle/internal/auth"
	platformcmd "github.com/zikrcircle/zikrcircle/internal/platform/cmd"
	"github.com/zikrcircle/zikrcircle/internal/services/api"
	"github.com/zikrcircle/zikrcircle/internal/storage/sqlite"
)

// Config captures the environment configuration for the api server.
type Config struct {
	Addr       string `env:"ZIKR_CIRCLE_API_ADDR" envDefault:":8080"`
	DBPath     string `env:"ZIKR_CIRCLE_DB_PATH" envDefault:"zikrcircle.db"`
	AuthSecret string `env:"ZIKR_CIRCLE_AUTH_SECRET"`
}

// Run starts the api server and blocks until ctx is cancelled.
func Run(ctx context.Context, args []string) error {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	fs := flag.NewFlagSet(platformcmd.ServiceAPI, flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite database path")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return err
	}

	if cfg.AuthSecret == "" {
		return fmt.Errorf("ZIKR_CIRCLE_AUTH_SECRET is required")
	}

	tokens, err := auth.NewManager([]byte(cfg.AuthSecret))
	if err != nil {
		return fmt.Errorf("create token manager: %w", err)
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	handler := api.NewHandler(api.Dependencies{
		Users:    store,
		Circles:  store,
		Sessions: store,
		Invites:  store,
		Tokens:   tokens,
	})
	server := api.NewServer(cfg.Addr, handler)

	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceAPI, server.Run)
}
