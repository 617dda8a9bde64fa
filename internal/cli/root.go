// Package cli provides the novabot command-line interface.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"nova-bot/internal/chatclient"
	"nova-bot/internal/config"
	"nova-bot/internal/content"
	"nova-bot/internal/identity"
	"nova-bot/internal/session"
	"nova-bot/internal/storage"
)

// Version is set at build time.
var Version = "0.1.0"

// app carries what PersistentPreRunE wires for the subcommands.
type app struct {
	configPath string
	verbose    bool

	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
	db       *sql.DB
	store    session.Store
	provider *identity.LocalProvider
	api      *chatclient.Client
	content  content.Content
}

// commands that run without config, storage or logging.
var standalone = map[string]bool{
	"version":    true,
	"help":       true,
	"team":       true,
	"completion": true,
}

// NewRootCmd builds the command tree. Running it without a subcommand opens the chat interface.
func NewRootCmd() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *app) {
	a := &app{content: content.Default()}

	root := &cobra.Command{
		Use:   "novabot",
		Short: "Nova-Bot customer support chat",
		Long: `Nova-Bot answers customer support questions about orders, returns and refunds.

Running novabot with no command opens the terminal chat. Sign in once with
"novabot signin" (or from the chat's sign-in screen); the session is kept
in ~/.novabot until you sign out.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if standalone[cmd.Name()] || (cmd.Parent() != nil && cmd.Parent().Name() == "config") {
				return nil
			}
			return a.setup(cmd.Context(), isInteractive(cmd))
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd, "")
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.novabot/config.toml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(
		a.newChatCmd(),
		a.newAskCmd(),
		a.newSigninCmd(false),
		a.newSigninCmd(true),
		a.newSignoutCmd(),
		a.newWhoamiCmd(),
		a.newTeamCmd(),
		a.newConfigCmd(),
		newVersionCmd(),
	)
	return root, a
}

// Execute runs the command tree until ctx is cancelled.
func Execute(ctx context.Context) error {
	root, a := newRoot()
	// PersistentPostRun is skipped when a command fails.
	defer a.teardown(os.Stderr)
	return root.ExecuteContext(ctx)
}

// isInteractive reports whether cmd hands the terminal to the chat interface.
func isInteractive(cmd *cobra.Command) bool {
	return cmd.Name() == "novabot" || cmd.Name() == "chat"
}

func (a *app) setup(ctx context.Context, quiet bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.LogLevel()
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger, a.closeLog, err = config.SetupLogger(cfg.Log.File, level, quiet)
	if err != nil {
		return err
	}
	slog.SetDefault(a.logger)

	db, err := storage.Open(ctx, cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	a.db = db

	if a.store, err = session.NewSQLiteStore(ctx, db); err != nil {
		return err
	}
	if a.provider, err = identity.NewLocalProvider(ctx, db); err != nil {
		return err
	}
	a.api = chatclient.New(chatclient.WithBaseURL(cfg.API.BaseURL), chatclient.WithLogger(a.logger))

	a.logger.Debug("client ready", "api", cfg.API.BaseURL, "db", cfg.Storage.DBPath)
	return nil
}

func (a *app) teardown(stderr io.Writer) {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			fmt.Fprintf(stderr, "Warning: failed to close database: %v\n", err)
		}
		a.db = nil
	}
	if a.closeLog != nil {
		_ = a.closeLog()
		a.closeLog = nil
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "novabot %s\n", Version)
		},
	}
}
