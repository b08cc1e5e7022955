package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/recall/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and manage configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configPathCmd())
	cmd.AddCommand(configValidateCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the resolved search configuration",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			// ResolvedSearchConfig omits the API key from JSON, so this is
			// safe to print.
			printJSON(map[string]interface{}{
				"agentId":   cfg.ResolveAgentID(),
				"workspace": cfg.ResolveWorkspace(),
				"search":    cfg.ResolveSearch(),
			})
		},
	}
}

func configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Run: func(cmd *cobra.Command, args []string) {
			cfgPath := resolveConfigPath()
			if _, err := config.Load(cfgPath); err != nil {
				fail("invalid config: %v", err)
			}
			fmt.Printf("Config at %s is valid.\n", cfgPath)
		},
	}
}
