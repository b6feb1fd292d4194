package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deepchat-ai/deepchat/internal/config"
	"github.com/deepchat-ai/deepchat/internal/version"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "deepchat",
		Short:        "DeepChat API server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runServe()
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.toml (default $"+config.EnvConfigPath+" or "+config.DefaultConfigPath+")")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Run: func(cmd *cobra.Command, _ []string) {
			runServe()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Println(version.GetInfo())
		},
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(config.ResolvePath(configPath))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
