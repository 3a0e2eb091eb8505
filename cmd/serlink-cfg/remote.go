package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/serlink/internal/client"
	"github.com/muurk/serlink/internal/config"
	"github.com/muurk/serlink/internal/discovery"
	"github.com/muurk/serlink/internal/settings"
	"github.com/muurk/serlink/internal/ui"
)

var (
	scanTimeout   time.Duration
	remoteURL     string
	remoteName    string
	remoteTimeout time.Duration
	remoteFlags   changeFlags
	noVerify      bool
	rollback      bool
	retries       int
	assumeYes     bool
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(remoteCmd)

	remoteCmd.AddCommand(remoteGetCmd)
	remoteCmd.AddCommand(remoteSetCmd)
	remoteCmd.AddCommand(remoteWatchCmd)
	remoteCmd.AddCommand(remoteRebootCmd)
}

// scanCmd discovers bridges on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for serlink bridges on the network",
	Long: `Scan for serlink bridges using mDNS/DNS-SD discovery.

Only bridges started with 'serlink-server serve --advertise' are listed.`,
	Example: `  # Scan for 5 seconds (default)
  serlink-cfg scan

  # Longer scan for busy networks
  serlink-cfg scan --timeout 15s`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "How long to listen for announcements")
}

func runScan(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanning for serlink bridges (timeout: %s)...\n\n", scanTimeout)

	bridges, err := scanBridges(cmd.Context(), scanTimeout)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(bridges) == 0 {
		fmt.Fprintln(out, "No bridges found.")
		fmt.Fprintln(out, "\nTroubleshooting:")
		fmt.Fprintln(out, "  - Start the bridge with 'serlink-server serve --advertise'")
		fmt.Fprintln(out, "  - Check that this computer is on the bridge's network")
		fmt.Fprintln(out, "  - Try a longer --timeout")
		fmt.Fprintln(out, "  - Use 'serlink-cfg remote --url <address>' if discovery is blocked")
		return nil
	}

	fmt.Fprintf(out, "Found %d bridge(s):\n\n", len(bridges))
	for i, b := range bridges {
		fmt.Fprintf(out, "%d. %s\n", i+1, b.Instance)
		fmt.Fprintf(out, "   Host:    %s\n", b.Hostname)
		fmt.Fprintf(out, "   URL:     %s\n", b.BaseURL())
		if b.Ports >= 0 {
			fmt.Fprintf(out, "   Ports:   %d\n", b.Ports)
		}
		if b.Version != "" {
			fmt.Fprintf(out, "   Version: %s\n", b.Version)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "Use 'serlink-cfg remote get --url <url>' to view a bridge's settings")
	return nil
}

// remoteCmd groups commands that talk to a bridge's API
var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Read or change settings of a bridge on the network",
	Long: `Read or change the settings of a running serlink-server.

The bridge is chosen by --url. Without --url, an mDNS scan is made: with
--instance the command waits for the bridge announced under that name,
otherwise the only bridge found is used.`,
}

// Replaced in tests.
var (
	scanBridges   = discovery.Scan
	waitForBridge = func(ctx context.Context, instance string, timeout time.Duration) (*discovery.Bridge, error) {
		s := discovery.NewScanner()
		s.Timeout = timeout
		return s.WaitForBridge(ctx, instance)
	}
)

func init() {
	remoteCmd.PersistentFlags().StringVar(&remoteURL, "url", "", "Bridge address, e.g. 10.0.0.20:8080 (skips discovery)")
	remoteCmd.PersistentFlags().StringVar(&remoteName, "instance", "", "mDNS instance name of the bridge to wait for")
	remoteCmd.PersistentFlags().DurationVar(&remoteTimeout, "timeout", 10*time.Second, "Per-request timeout")
}

var remoteGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show a bridge's settings",
	Example: `  serlink-cfg remote get --url 10.0.0.20:8080
  serlink-cfg remote get --format json`,
	RunE: runRemoteGet,
}

func runRemoteGet(cmd *cobra.Command, args []string) error {
	c, err := remoteClient(cmd.Context())
	if err != nil {
		return err
	}

	s, err := c.GetSettings(cmd.Context())
	if err != nil {
		return remoteFailure(cmd, "Failed to read settings", err)
	}

	if outputFormat == "detailed" {
		fmt.Fprint(cmd.OutOrStdout(), ui.NewHeader("BRIDGE SETTINGS", "serlink-cfg remote get",
			ui.Param{Key: "Bridge", Value: c.BaseURL},
		).Render())
	}
	return printSnapshot(cmd.OutOrStdout(), s, outputFormat)
}

var remoteSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change a bridge's settings",
	Long: `Change network or serial port settings on a bridge.

The current settings are read first, the flags are applied on top and the
result is sent back. Unless --no-verify is given, the settings are read
again until they match.`,
	Example: `  # Move port 0 to 115200 baud
  serlink-cfg remote set --url 10.0.0.20:8080 --port 0 --baud 115200

  # Undo the change if the bridge does not apply it
  serlink-cfg remote set --url 10.0.0.20:8080 --port 1 --flow x --rollback

  # Change the bridge address without verification
  serlink-cfg remote set --url 10.0.0.20:8080 --ip 10.0.0.21 --no-verify`,
	RunE: runRemoteSet,
}

func init() {
	remoteFlags.register(remoteSetCmd.Flags())
	remoteSetCmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip reading the settings back after the update")
	remoteSetCmd.Flags().IntVar(&retries, "retries", 3, "Number of verification read-backs")
	remoteSetCmd.Flags().BoolVar(&rollback, "rollback", false, "Restore the previous settings if verification fails")
}

func runRemoteSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := remoteClient(ctx)
	if err != nil {
		return err
	}

	current, err := c.GetSettings(ctx)
	if err != nil {
		return remoteFailure(cmd, "Failed to read settings", err)
	}

	limit := maxPorts
	if limit <= 0 {
		limit = max(len(current.Ports), config.DefaultMaxPorts)
	}

	b := settings.NewBuilder(current, limit)
	if err := remoteFlags.apply(cmd.Flags(), b); err != nil {
		return err
	}
	if !b.HasChanges() {
		return fmt.Errorf("nothing to change; see 'serlink-cfg remote set --help'")
	}
	want, err := b.Build()
	if err != nil {
		return fmt.Errorf("invalid settings:\n%s", settings.FormatValidationErrors(unjoin(err)))
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, settings.FormatDiff(current, want))
	fmt.Fprintln(out)

	if noVerify {
		update, err := c.PutSettings(ctx, want)
		if err != nil {
			return remoteFailure(cmd, "Update failed", err)
		}
		result := ui.NewSuccessResult("Settings sent (not verified)", ui.Param{Key: "Bridge", Value: c.BaseURL})
		for _, w := range update.Warnings {
			result.AddDetail("Warning", w)
		}
		fmt.Fprint(out, result.Render())
		return nil
	}

	opts := client.DefaultVerificationOptions()
	opts.MaxRetries = retries

	var result *client.VerificationResult
	if rollback {
		safe := c.SafeUpdate(ctx, want, opts)
		result = safe.UpdateResult
		if result == nil {
			result = &client.VerificationResult{Error: safe.Error}
		} else if !safe.Success {
			result.Error = safe.Error
		}
	} else {
		result = c.UpdateAndVerify(ctx, want, opts)
	}
	if !result.Success {
		var hints []string
		for _, m := range result.Mismatches {
			hints = append(hints, "Mismatch: "+m)
		}
		if hint := client.GetTroubleshootingHint(result.Error); result.Error != nil && hint != "" {
			hints = append(hints, strings.Split(hint, "\n")...)
		}
		fmt.Fprint(out, ui.NewFailureResult("Settings not applied", result.Error, hints).Render())
		return fmt.Errorf("settings verification failed after %d attempt(s)", result.Attempts)
	}

	done := ui.NewSuccessResult("Settings applied and verified",
		ui.Param{Key: "Bridge", Value: c.BaseURL},
		ui.Param{Key: "Attempts", Value: fmt.Sprint(result.Attempts)},
		ui.Param{Key: "Summary", Value: result.Actual.Summary()},
	)
	for _, w := range result.Warnings {
		done.AddDetail("Warning", w)
	}
	fmt.Fprint(out, done.Render())
	return nil
}

var remoteWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print settings changes as they happen",
	Long: `Follow a bridge's change stream and print every settings update until
interrupted.`,
	RunE: runRemoteWatch,
}

func runRemoteWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	c, err := remoteClient(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n\n", c.BaseURL)

	return c.Watch(ctx, func(ev client.Event) error {
		fmt.Fprintf(out, "[%s] %s: %s\n", time.Now().Format("15:04:05"), ev.Type, strings.Join(ev.Changed, ", "))
		fmt.Fprintf(out, "  %s\n", ev.Settings.Summary())
		return nil
	})
}

var remoteRebootCmd = &cobra.Command{
	Use:   "reboot",
	Short: "Reboot a bridge",
	RunE:  runRemoteReboot,
}

func init() {
	remoteRebootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
}

func runRemoteReboot(cmd *cobra.Command, args []string) error {
	c, err := remoteClient(cmd.Context())
	if err != nil {
		return err
	}

	if !assumeYes {
		ok := ui.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Reboot "+c.BaseURL+"?", []string{
			"All serial connections through the bridge will drop",
			"The settings page is unavailable until it is back up",
		})
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	if err := c.Reboot(cmd.Context()); err != nil {
		return remoteFailure(cmd, "Reboot failed", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), ui.NewSuccessResult("Reboot requested", ui.Param{Key: "Bridge", Value: c.BaseURL}).Render())
	return nil
}

// remoteClient returns a client for --url, for the bridge named by
// --instance, or for the single bridge an mDNS scan finds.
func remoteClient(ctx context.Context) (*client.Client, error) {
	url, err := bridgeURL(ctx, os.Stderr)
	if err != nil {
		return nil, err
	}

	c := client.NewClient(url)
	c.SetTimeout(remoteTimeout)
	return c, nil
}

func bridgeURL(ctx context.Context, errOut io.Writer) (string, error) {
	if remoteURL != "" {
		return remoteURL, nil
	}

	if remoteName != "" {
		fmt.Fprintf(errOut, "Waiting for bridge %q...\n", remoteName)
		b, err := waitForBridge(ctx, remoteName, discovery.DefaultScanTimeout)
		if err != nil {
			return "", fmt.Errorf("discovery failed: %w", err)
		}
		fmt.Fprintf(errOut, "Found %s\n\n", b)
		return b.BaseURL(), nil
	}

	fmt.Fprintln(errOut, "No --url given, attempting discovery...")
	bridges, err := scanBridges(ctx, discovery.DefaultScanTimeout)
	if err != nil {
		return "", fmt.Errorf("discovery failed: %w", err)
	}
	switch len(bridges) {
	case 0:
		return "", fmt.Errorf("no bridges found. Use --url to specify one")
	case 1:
		fmt.Fprintf(errOut, "Found %s\n\n", bridges[0])
		return bridges[0].BaseURL(), nil
	default:
		for i, b := range bridges {
			fmt.Fprintf(errOut, "%d. %s\n", i+1, b)
		}
		return "", fmt.Errorf("multiple bridges found. Use --url or --instance to specify which one")
	}
}

func remoteFailure(cmd *cobra.Command, title string, err error) error {
	fmt.Fprint(cmd.OutOrStdout(), ui.NewFailureResult(title, err,
		strings.Split(client.GetTroubleshootingHint(err), "\n")).Render())
	return err
}
