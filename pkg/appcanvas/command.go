package appcanvas

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/appcanvas/appcanvas/pkg/auth"
	"github.com/appcanvas/appcanvas/pkg/config"
	"github.com/appcanvas/appcanvas/pkg/logger"
)

// RootOptions holds the flags shared by every command. Set flags override
// the config file and the environment.
type RootOptions struct {
	ConfigPath string
	Port       int
	DBDriver   string
	DBDSN      string
	LogLevel   string
	ReadOnly   bool
}

// Load resolves the configuration for cmd.
func (o *RootOptions) Load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = o.Port
	}
	if flags.Changed("db-driver") {
		cfg.Database.Driver = o.DBDriver
	}
	if flags.Changed("db-dsn") {
		cfg.Database.DSN = o.DBDSN
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.LogLevel
	}
	if flags.Changed("read-only") {
		cfg.ReadOnly = o.ReadOnly
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// open builds the logger and the App for a command. The returned func
// releases both.
func (o *RootOptions) open(cmd *cobra.Command) (*App, func(), error) {
	cfg, err := o.Load(cmd)
	if err != nil {
		return nil, nil, err
	}
	logData, err := logger.New().
		FromBuffer(cmd.ErrOrStderr()).
		FromPath(cfg.Log.Path).
		WithLevel(cfg.Log.Level).
		Pretty(cfg.Log.Pretty).
		Make()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log: %w", err)
	}
	app, err := Open(cfg, logData.Logger)
	if err != nil {
		_ = logData.Close()
		return nil, nil, err
	}
	return app, func() {
		if err := app.Close(); err != nil {
			logData.Logger.Warn().Err(err).Msg("Failed to close store")
		}
		_ = logData.Close()
	}, nil
}

// NewRootCommand creates the appcanvas command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "appcanvas",
		Short:         "Backend of the appcanvas drag-and-drop application builder",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	flags.IntVar(&opts.Port, "port", 8080, "HTTP port")
	flags.StringVar(&opts.DBDriver, "db-driver", "sqlite", "database driver (postgres|sqlite)")
	flags.StringVar(&opts.DBDSN, "db-dsn", "", "database connection string")
	flags.StringVar(&opts.LogLevel, "log-level", "info", "log level")
	flags.BoolVar(&opts.ReadOnly, "read-only", false, "reject all writes with 503")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))
	cmd.AddCommand(newConfigCommand())
	return cmd
}

func newServeCommand(opts *RootOptions) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closeApp, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp()
			if migrate {
				if err := app.Migrate(cmd.Context()); err != nil {
					return err
				}
			}
			if err := app.Run(cmd.Context()); err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run schema migrations before serving")
	return cmd
}

func newMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closeApp, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp()
			return app.Migrate(cmd.Context())
		},
	}
}

func newHistoryCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Maintain the canvas history",
	}

	var (
		retainDays int
		keep       int
		archiveDir string
	)
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete history entries outside the retention policy",
		Long: `Delete history entries outside the retention policy.

The policy comes from the history section of the config unless overridden.
With an archive directory the deleted entries are written to a CBOR file
first; if writing the archive fails nothing is deleted.

Example:
  appcanvas history prune --retain-days 90 --archive-dir ./archive`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closeApp, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp()
			hc := &app.config.History
			if cmd.Flags().Changed("retain-days") {
				hc.RetainDays = retainDays
			}
			if cmd.Flags().Changed("keep") {
				hc.KeepPerCanvas = keep
			}
			if cmd.Flags().Changed("archive-dir") {
				hc.ArchiveDir = archiveDir
			}
			res, err := app.pruner().Prune(cmd.Context())
			if err != nil {
				return fmt.Errorf("history prune failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d history entries\n", res.Pruned)
			if res.Archive != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "archive: %s\n", res.Archive)
			}
			return nil
		},
	}
	prune.Flags().IntVar(&retainDays, "retain-days", 0, "delete entries older than this many days")
	prune.Flags().IntVar(&keep, "keep", 0, "keep only the newest entries per canvas")
	prune.Flags().StringVar(&archiveDir, "archive-dir", "", "write deleted entries to a CBOR archive in this directory")
	cmd.AddCommand(prune)
	return cmd
}

// newTokenCommand mints a bearer token. User accounts live outside this
// service, so operators and tests use it to act as a user id.
func newTokenCommand(opts *RootOptions) *cobra.Command {
	var userID uint
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for a user id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.Load(cmd)
			if err != nil {
				return err
			}
			token, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).Issue(userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "user id to issue the token for (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), config.DefaultConfigYAML)
			return err
		},
	}
}

// Main runs the command line in args. It can be called from tests without
// building the binary; ctx cancellation stops a running server.
func Main(ctx context.Context, args []string) error {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// Exit runs Main with the process arguments and exits non-zero on failure.
func Exit(ctx context.Context) {
	if err := Main(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "appcanvas:", err)
		os.Exit(1)
	}
}
