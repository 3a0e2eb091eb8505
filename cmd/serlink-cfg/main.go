// Serlink-cfg is the operator utility for serlink serial bridges.
//
// It edits the local settings file, previews the settings page, lists the
// host's serial devices and talks to bridges on the network through their
// JSON API.
//
// Usage:
//
//	serlink-cfg [command] [flags]
//
// See 'serlink-cfg --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/serlink/internal/logging"
	"github.com/muurk/serlink/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath   string
	maxPorts     int
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "serlink-cfg",
	Short: "Serial bridge configuration utility",
	Long: `A utility for configuring serlink serial bridges.

Local commands (render, show, set, edit, ports) work on the settings file
used by serlink-server on this host. Network commands (scan, remote) find
bridges over mDNS and change their settings through the JSON API.

Set SERLINK_LOG_LEVEL=debug to see diagnostic logging.`,
	Version:       version.Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitializeFromEnv()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file (default: <config dir>/serlink/settings.yaml)")
	rootCmd.PersistentFlags().IntVar(&maxPorts, "max-ports", 0, "Serial port capacity (0 = from settings file)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("serlink-cfg %s\n", version.Full())
	},
}
