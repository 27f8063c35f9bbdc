package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var validateCollections []string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compare source document counts with target row counts",
	Long: `Count the documents of each MongoDB collection and the rows of its PostgreSQL
main table. Documents the last run skipped for lack of an identifier are
subtracted from the expected count.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng, cleanup, err := openEngine(ctx, true, false)
		if err != nil {
			return err
		}
		defer cleanup()

		fmt.Println("Running validation...")
		result, path, err := eng.Validate(ctx, validateCollections, func(collection, checkType string, passed bool) {
			status := "PASS"
			if !passed {
				status = "FAIL"
			}
			fmt.Printf("  [%s] %s: %s\n", status, collection, checkType)
		})
		if err != nil {
			return fmt.Errorf("validation: %w", err)
		}

		for _, c := range result.Collections {
			if c.RowCountCheck != nil && !c.RowCountCheck.Match {
				fmt.Printf("  %s: %s\n", c.Name, c.RowCountCheck.Message)
			}
		}
		fmt.Printf("\nOverall: %s\n", result.Status)
		if path != "" {
			fmt.Printf("Report saved to: %s\n", path)
		}
		if failed := result.Failed(); len(failed) > 0 {
			return fmt.Errorf("%d collection(s) failed validation", len(failed))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringSliceVarP(&validateCollections, "collection", "c", nil, "collections to validate (default: all)")
	rootCmd.AddCommand(validateCmd)
}
