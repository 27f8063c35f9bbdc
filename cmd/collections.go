package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesa4core/lmlmigrate/internal/config"
	"github.com/mesa4core/lmlmigrate/internal/selection"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections [pattern]",
	Short: "List collections in migration order",
	Long:  `Print the collection graph in migration order. An optional glob (e.g. "lml_p*") filters by full or short name.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list := config.OrderedCollections()
		if len(args) == 1 {
			list = selection.FilterByPattern(args[0])
			if len(list) == 0 {
				return fmt.Errorf("no collection matches %q", args[0])
			}
		}
		for i, c := range list {
			fmt.Printf("%d. %-28s -> %-18s [%s]\n", i+1, c.Name, c.Schema, c.Type)
			if len(c.DependsOn) > 0 {
				deps := make([]string, len(c.DependsOn))
				for j, d := range c.DependsOn {
					deps[j] = config.Collections[d].ShortName()
				}
				fmt.Printf("   needs: %s\n", strings.Join(deps, ", "))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
}
