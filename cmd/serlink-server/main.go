// Serlink-server serves the serial bridge settings page.
//
// It renders the page from the stored settings, applies form submissions
// from the page itself, exposes a JSON API for remote tools and can
// announce itself over mDNS.
//
// Usage:
//
//	serlink-server serve [flags]
//
// See 'serlink-server serve --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/serlink/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "serlink-server",
	Short: "Serial bridge settings server",
	Long: `Serves the settings page of a serial-to-TCP bridge.

The page shows the network address, netmask and gateway of the bridge and
the TCP port, baud rate and flow control of every serial port. Submitting
the page saves the settings; submitting it to /boot also reboots.

For editing settings from a terminal, use the separate 'serlink-cfg' utility.`,
	Version: version.Short(),
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("serlink-server %s\n", version.Full())
	},
}
