package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and validate the lmlmigrate configuration after the .env overlay.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Println("Current configuration:")
		fmt.Println()
		fmt.Printf("  Source:\n")
		if cfg.Source.URI != "" {
			fmt.Printf("    URI:            %s\n", maskSecret(cfg.Source.URI))
		}
		fmt.Printf("    Host:           %s\n", cfg.Source.Host)
		fmt.Printf("    Port:           %d\n", cfg.Source.Port)
		fmt.Printf("    Database:       %s\n", cfg.Source.Database)
		fmt.Printf("    Username:       %s\n", cfg.Source.Username)
		fmt.Printf("    Password:       %s\n", maskSecret(cfg.Source.Password))
		fmt.Printf("    Auth Source:    %s\n", cfg.Source.AuthSource)
		fmt.Println()
		fmt.Printf("  Target:\n")
		fmt.Printf("    Host:           %s\n", cfg.Target.Host)
		fmt.Printf("    Port:           %d\n", cfg.Target.Port)
		fmt.Printf("    Database:       %s\n", cfg.Target.Database)
		fmt.Printf("    Username:       %s\n", cfg.Target.Username)
		fmt.Printf("    Password:       %s\n", maskSecret(cfg.Target.Password))
		fmt.Printf("    SSL:            %t\n", cfg.Target.SSL)
		fmt.Printf("    Max Conns:      %d\n", cfg.Target.MaxConnections)
		fmt.Println()
		fmt.Printf("  Batch Size:       %d\n", cfg.BatchSize)
		fmt.Printf("  Log Level:        %s\n", cfg.Logging.Level)
		fmt.Printf("  Log Directory:    %s\n", cfg.Logging.Directory)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		fmt.Println("Configuration is valid.")
		return nil
	},
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
