// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the cmsblog binary. It serves the
// blog and manages the database schema and seed data.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/SherPsu/cms-blog/internal/config"
	"github.com/SherPsu/cms-blog/internal/database"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "cmsblog",
	Short: "Blog CMS with public pages, an admin panel, and a JSON API",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return config.LoadEnvFile(envFile)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the default logger: text in
// development, JSON everywhere else.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())
	return cfg, nil
}

// openDB loads configuration and connects to PostgreSQL.
func openDB(ctx context.Context) (*config.Config, *sql.DB, error) {
	cfg, err := setup()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
