package main

import (
	"codeshare/repositories"
	"fmt"
	"io"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config Config
	DBPath string
}

// NewRootCommand creates the root command of the archive inspector.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect archived codeshare sessions",
		Long:  "Reads the sessions evicted to BadgerDB and re-verifies their ledger chain and seal.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if opts.DBPath != "" {
				cfg.BadgerFilepath = opts.DBPath
			}
			opts.Config = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "path to badger DB (default BADGER_FILEPATH)")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewChainCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// withRepository opens the database read-only, the server may hold the lock.
func withRepository(opts *RootOptions, fn func(repositories.ArchiveRepository) error) error {
	db, err := badger.Open(badger.DefaultOptions(opts.Config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	return fn(repositories.NewArchiveRepository(db, slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func paint(opts *RootOptions, style color.Style, text string) string {
	if !opts.Config.Colours {
		return text
	}
	return style.Render(text)
}
