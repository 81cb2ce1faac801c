// Package cli provides the surrealrecord command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/surrealdb/surrealrecord/internal/config"
	"github.com/surrealdb/surrealrecord/pkg/logger"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

type sessionKey struct{}

// session carries what PersistentPreRunE prepared for a command.
type session struct {
	cfg *config.Config
}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "surrealrecord",
		Short: "Inspect and edit content elements",
		Long: `surrealrecord reads, lists and saves content elements kept in an
in-memory seed file, SurrealDB or PostgreSQL.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			cmd.SetContext(context.WithValue(cmd.Context(), sessionKey{}, &session{cfg: cfg}))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./"+config.DefaultFile+")")
	flags.String("driver", "", "store driver (memory|surrealdb|postgres)")
	flags.String("log-level", "", "log level (debug|info|warn|error)")
	flags.String("log-file", "", "append logs to this file instead of stderr")
	flags.String("seed", "", "JSON seed file for the memory driver")
	flags.String("endpoint", "", "SurrealDB endpoint URL")
	flags.String("namespace", "", "SurrealDB namespace")
	flags.String("database", "", "SurrealDB database")
	flags.String("username", "", "SurrealDB username")
	flags.String("password", "", "SurrealDB password")
	flags.String("dsn", "", "PostgreSQL connection string")
	flags.Bool("migrate", false, "create the PostgreSQL tables before running")

	_ = rootCmd.RegisterFlagCompletionFunc("driver", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.DriverMemory, config.DriverSurrealDB, config.DriverPostgres}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newGetCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newSaveCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func getSession(ctx context.Context) *session {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(sessionKey{}).(*session)
	return s
}

// openLog builds the command log from the configuration. The caller closes
// it once the command is done, whether or not it failed.
func openLog(cmd *cobra.Command, cfg *config.Config) (*logger.LogData, error) {
	build := logger.NewBuild().Level(cfg.LogLevel).FromBuffer(cmd.ErrOrStderr())
	if cfg.LogFile != "" {
		build = build.FromPath(cfg.LogFile)
	}
	logData, err := build.Make()
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return logData, nil
}
