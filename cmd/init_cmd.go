package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesa4core/lmlmigrate/internal/config"
	"github.com/mesa4core/lmlmigrate/internal/engine"
	"github.com/mesa4core/lmlmigrate/internal/wizard"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config file interactively",
	Long: `Fill in the MongoDB and PostgreSQL connection details, test both, and write
~/.lmlmigrate/lmlmigrate.yaml. Values already in the config or the .env file
are prefilled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}
		base, err := config.LoadOrEnv(cfgFile)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			base = config.Default()
		}

		probe := engine.New(base, nil)
		cfg, err := wizard.RunInit(base, probe.TestConnections)
		if err != nil {
			return err
		}

		cfgPath := config.ExpandHome(config.DefaultPath)
		if cfgFile != "" {
			cfgPath = cfgFile
		}
		if err := cfg.Save(cfgPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Printf("Config written to %s\n", cfgPath)
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  lmlmigrate collections   List collections in migration order")
		fmt.Println("  lmlmigrate               Open the interactive menu")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
