package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/notekeeper/internal/adapter/driven/backend"
	"github.com/ericfisherdev/notekeeper/internal/application"
	"github.com/ericfisherdev/notekeeper/internal/config"
	"github.com/ericfisherdev/notekeeper/internal/domain/model"
)

// app carries the flags and configuration shared by every subcommand.
type app struct {
	user        string
	dbPath      string
	backendName string
	verbose     bool

	cfg         *config.Config
	logger      *slog.Logger
	openBackend func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend.Backend, error)
}

func newRootCmd() *cobra.Command {
	return newAppCmd(&app{openBackend: backend.Open})
}

func newAppCmd(a *app) *cobra.Command {

	root := &cobra.Command{
		Use:   "notekeeperctl",
		Short: "Manage notekeeper notes from the command line",
		Long: `notekeeperctl works on the same storage as the notekeeper server.
Configuration is read from the NOTEKEEPER_* environment variables; flags
override the backend selection.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if a.dbPath != "" {
				cfg.DBPath = a.dbPath
			}
			if a.backendName != "" {
				cfg.Backend = a.backendName
			}

			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			a.cfg = cfg
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.user, "user", "u", "local", "user id whose notes to operate on")
	flags.StringVar(&a.dbPath, "db", "", "SQLite database path (overrides NOTEKEEPER_DB_PATH)")
	flags.StringVar(&a.backendName, "backend", "", "storage backend: local or remote (overrides NOTEKEEPER_BACKEND)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(
		newListCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newDeleteCmd(a),
		newExportCmd(a),
	)
	return root
}

// withWorkspace opens the backend, loads the user's list and runs fn on it.
// Writes are synchronous and a failed save fails the command.
func (a *app) withWorkspace(ctx context.Context, fn func(ws *application.Workspace) error) error {
	b, err := a.openBackend(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			a.logger.Error("error closing backend", "error", closeErr)
		}
	}()

	user := model.User{ID: a.user, DisplayName: a.user}
	ws := application.NewWorkspace(user, b.Store, application.PersistStrict, nil, a.logger)
	defer func() { _ = ws.Close(ctx) }()

	ws.Load(ctx)
	if !ws.Loaded() {
		return fmt.Errorf("could not load notes for user %q", a.user)
	}
	return fn(ws)
}
