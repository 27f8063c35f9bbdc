package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesa4core/lmlmigrate/internal/rollback"
)

var (
	resetCollections       []string
	resetConfirm           bool
	resetIncludeDependents bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Truncate migrated collections and clear their history",
	Long: `Truncate <schema>.main CASCADE for the selected collections and forget
their last run. Catalog tables shared with other collections are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(resetCollections) == 0 {
			return fmt.Errorf("--collection is required")
		}
		opts := rollback.Options{Collections: resetCollections, IncludeDependents: resetIncludeDependents}
		plan, err := rollback.Plan(opts)
		if err != nil {
			return err
		}
		if !resetConfirm {
			fmt.Println("Reset requires --confirm to proceed.")
			fmt.Println("This will TRUNCATE the following tables (CASCADE):")
			for _, c := range plan {
				fmt.Printf("  %s\n", c.MainTable())
			}
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		eng, cleanup, err := openEngine(ctx, true, false)
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := eng.Reset(ctx, opts)
		if err != nil {
			return fmt.Errorf("reset: %w", err)
		}

		if len(result.Truncated) > 0 {
			fmt.Printf("Truncated: %v\n", result.Truncated)
		}
		if len(result.SkippedTable) > 0 {
			fmt.Printf("Not found (skipped): %v\n", result.SkippedTable)
		}
		if len(result.StateCleared) > 0 {
			fmt.Printf("History cleared: %v\n", result.StateCleared)
		}
		if len(result.Errors) > 0 {
			fmt.Println("Errors during reset:")
			for _, e := range result.Errors {
				fmt.Printf("  - %s\n", e)
			}
			return fmt.Errorf("%d error(s) during reset", len(result.Errors))
		}
		return nil
	},
}

func init() {
	resetCmd.Flags().StringSliceVarP(&resetCollections, "collection", "c", nil, "collections to reset")
	resetCmd.Flags().BoolVar(&resetConfirm, "confirm", false, "actually truncate")
	resetCmd.Flags().BoolVar(&resetIncludeDependents, "include-dependents", false, "also reset collections that depend on the selected ones")
	rootCmd.AddCommand(resetCmd)
}
