package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesa4core/lmlmigrate/internal/config"
	"github.com/mesa4core/lmlmigrate/internal/engine"
	"github.com/mesa4core/lmlmigrate/internal/logging"
	"github.com/mesa4core/lmlmigrate/internal/migration"
	"github.com/mesa4core/lmlmigrate/internal/report"
	"github.com/mesa4core/lmlmigrate/internal/selection"
	"github.com/mesa4core/lmlmigrate/internal/wizard"
)

var (
	cfgFile  string
	envFile  string
	logLevel string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "lmlmigrate",
	Short: "lmlmigrate: mesa4core MongoDB to PostgreSQL migration tool",
	Long: `lmlmigrate copies the lml_*_mesa4core MongoDB collections into the
normalized lml_* PostgreSQL schemas, one collection per run.

Running without a subcommand opens the interactive collection menu.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng, cleanup, err := openEngine(ctx, true, true)
		if err != nil {
			return err
		}
		defer cleanup()

		coll, err := wizard.SelectCollection(config.OrderedCollections(), eng.LastStatuses())
		if err != nil {
			return err
		}

		// The runner's dependency gate cannot open a prompt while the
		// progress view owns the terminal, so ask up front.
		missing, err := eng.CheckDependencies(ctx, coll.Name)
		if err != nil {
			return err
		}
		proceed := true
		if len(missing) > 0 {
			if proceed, err = wizard.Confirm(coll.Name, missing); err != nil {
				return err
			}
		}

		var out *engine.Outcome
		_, runErr := wizard.RunWithProgress(ctx, coll.ShortName(), func(ctx context.Context, cb migration.StatusCallback) (*migration.Status, error) {
			var err error
			out, err = eng.Migrate(ctx, coll.Name, engine.MigrateOptions{
				Confirm:  func(string, []selection.MissingDependency) bool { return proceed },
				Callback: cb,
			})
			if out == nil {
				return nil, err
			}
			return out.Status, err
		})
		printOutcome(out)
		return runErr
	},
}

// Execute runs the root command. Operator cancellation exits 0.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	err := rootCmd.Execute()
	switch {
	case err == nil:
	case isOperatorCancel(err):
		fmt.Fprintf(os.Stderr, "Cancelled: %v\n", err)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func isOperatorCancel(err error) bool {
	return errors.Is(err, migration.ErrCancelled) ||
		errors.Is(err, migration.ErrDependencyUnsatisfied) ||
		errors.Is(err, wizard.ErrCancelled)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.lmlmigrate/lmlmigrate.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with MONGO_* and POSTGRES_* variables")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig reads the .env file and the config, the environment winning.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrEnv(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openEngine builds the engine with logging and state, connecting to both
// stores when connect is set. Interactive sessions log to the file only so
// the terminal belongs to the menu. cleanup closes everything.
func openEngine(ctx context.Context, connect, interactive bool) (*engine.Engine, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	setup := logging.Setup
	if interactive {
		setup = logging.SetupFile
	}
	logger, closer, err := setup(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("setting up logging: %w", err)
	}
	eng := engine.New(cfg, logger)
	if _, err := eng.LoadState(); err != nil {
		closer.Close()
		return nil, nil, fmt.Errorf("loading state: %w", err)
	}
	cleanup := func() {
		eng.Close(context.WithoutCancel(ctx))
		closer.Close()
	}
	if connect {
		if err := eng.Connect(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return eng, cleanup, nil
}

func printOutcome(out *engine.Outcome) {
	if out == nil || out.Report == nil {
		return
	}
	fmt.Println()
	fmt.Print(report.FormatText(out.Report))
	if out.ReportPath != "" {
		fmt.Printf("\nReport saved to: %s\n", out.ReportPath)
	}
}
