package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last run of every collection",
	Long:  `Print each collection's last run from the state file and, when PostgreSQL is reachable, the current row count of its main table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		eng, cleanup, err := openEngine(ctx, false, false)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := eng.Connect(ctx); err != nil {
			fmt.Printf("Warning: row counts unavailable: %v\n\n", err)
		}

		rows, err := eng.Status(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("%-16s %-10s %-20s %10s %10s\n", "COLLECTION", "STATUS", "FINISHED", "DOCUMENTS", "ROWS")
		for _, r := range rows {
			status, finished, docs := "never", "-", "-"
			if r.Last != nil {
				status = string(r.Last.Status)
				if !r.Last.FinishedAt.IsZero() {
					finished = r.Last.FinishedAt.Local().Format("2006-01-02 15:04:05")
				}
				docs = fmt.Sprintf("%d", r.Last.Documents)
			}
			count := "?"
			if r.Rows >= 0 {
				count = fmt.Sprintf("%d", r.Rows)
			}
			fmt.Printf("%-16s %-10s %-20s %10s %10s\n", r.Collection.ShortName(), status, finished, docs, count)
			if r.Last != nil && r.Last.Error != "" {
				fmt.Printf("  error: %s\n", r.Last.Error)
			}
		}

		if pid := eng.LockHolder(); pid != 0 {
			fmt.Printf("\nA migration is running (PID %d)\n", pid)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
