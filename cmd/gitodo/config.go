package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/gitodo/internal/settings"
	"github.com/example/gitodo/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage gitodo configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with current values",
	Long: `Write config.yaml to the config directory, seeding it with the
currently effective values (defaults merged with any existing file and
GITODO_* environment overrides).`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := settings.Load(configDir)
		if err != nil {
			fatalf("Error: %v\n", err)
		}

		if err := settings.Save(configDir, cfg); err != nil {
			fatalf("Error writing config: %v\n", err)
		}

		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), filepath.Join(configDir, "config.yaml"))
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := settings.Load(configDir)
		if err != nil {
			fatalf("Error: %v\n", err)
		}

		fmt.Printf("\n%s\n\n", ui.RenderTitle("Configuration"))
		fmt.Printf("root_folder:    %s\n", cfg.RootFolder)
		fmt.Printf("store_backend:  %s\n", cfg.StoreBackend)
		fmt.Printf("repo_path:      %s\n", cfg.RepoPath)
		fmt.Printf("drafts_dir:     %s\n", cfg.DraftsDir)
		fmt.Printf("cache_path:     %s\n", cfg.CachePath)
		fmt.Printf("dashboard_port: %d\n", cfg.DashboardPort)
		fmt.Printf("log_path:       %s\n", cfg.LogPath)
		fmt.Printf("model:          %s\n", cfg.Model)
		fmt.Println()
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
