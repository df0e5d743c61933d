package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "cursor-api",
	Short: "cursor-api - OpenAI and Anthropic compatible gateway for the Cursor backend",
	Long: `cursor-api is a self-hosted HTTP gateway that exposes the Cursor editor
backend through the OpenAI chat completions API and the Anthropic messages API.

It translates both request dialects onto the upstream stream protocol, providing:
  - /v1/chat/completions and /v1/messages on one listener
  - Streaming (SSE) and buffered responses
  - Model listing with thinking-variant resolution
  - Prometheus metrics, health reporting and usage accounting

For more information, visit: https://github.com/RelientS/cursor-api`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.CompletionOptions.DisableDefaultCmd = false
}

// resolveConfigPath returns the configuration file to load. The default
// path is optional: when --config was not given and config.yaml does not
// exist, configuration comes from defaults and environment overrides.
// An explicitly requested file must exist.
func resolveConfigPath() string {
	if rootCmd.PersistentFlags().Changed("config") {
		return cfgFile
	}
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		return ""
	}
	return cfgFile
}
