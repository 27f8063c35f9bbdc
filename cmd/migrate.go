package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesa4core/lmlmigrate/internal/engine"
	"github.com/mesa4core/lmlmigrate/internal/migration"
	"github.com/mesa4core/lmlmigrate/internal/selection"
	"github.com/mesa4core/lmlmigrate/internal/wizard"
)

var (
	migrateCollection string
	migrateYes        bool
	migrateBatchSize  int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate one collection",
	Long: `Truncate the collection's PostgreSQL namespace and reload it from MongoDB in
committed batches. Interrupting stops after the current batch; committed
batches stay in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateCollection == "" {
			return fmt.Errorf("--collection is required")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng, cleanup, err := openEngine(ctx, true, false)
		if err != nil {
			return err
		}
		defer cleanup()

		out, err := eng.Migrate(ctx, migrateCollection, engine.MigrateOptions{
			BatchSize: migrateBatchSize,
			Confirm:   confirmDependencies,
			Callback:  printProgress,
		})
		printOutcome(out)
		return err
	},
}

func confirmDependencies(collection string, missing []selection.MissingDependency) bool {
	if migrateYes {
		fmt.Printf("Proceeding without %d prerequisite(s) (--yes)\n", len(missing))
		return true
	}
	ok, err := wizard.Confirm(collection, missing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "confirmation failed: %v\n", err)
		return false
	}
	return ok
}

func printProgress(status *migration.Status) {
	switch status.Phase {
	case migration.PhaseTruncate:
		fmt.Printf("Truncating %s...\n", status.Collection)
	case migration.PhaseIterate:
		if status.Batches == 0 {
			fmt.Printf("Reading %d documents...\n", status.Overall.DocsTotal)
		}
	case migration.PhaseFlush, migration.PhaseFinalFlush:
		if status.Batches > 0 {
			fmt.Printf("\rProgress: %.1f%% (%d/%d docs, %d batches)",
				status.Overall.PercentComplete, status.Overall.DocsWritten, status.Overall.DocsTotal, status.Batches)
		}
	case migration.PhaseDone:
		fmt.Printf("\nMigration completed in %s\n", status.ElapsedTime)
	case migration.PhaseCancelled:
		fmt.Printf("\nMigration cancelled after %d documents\n", status.Overall.DocsWritten)
	case migration.PhaseAborted:
		fmt.Printf("\nMigration failed: %v\n", status.Errors)
	}
}

func init() {
	migrateCmd.Flags().StringVarP(&migrateCollection, "collection", "c", "", "collection to migrate (full or short name)")
	migrateCmd.Flags().BoolVarP(&migrateYes, "yes", "y", false, "proceed even when prerequisites are empty")
	migrateCmd.Flags().IntVar(&migrateBatchSize, "batch-size", 0, "documents per transaction (default from config)")
	rootCmd.AddCommand(migrateCmd)
}
