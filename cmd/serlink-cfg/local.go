package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/serlink/internal/editor"
	"github.com/muurk/serlink/internal/serialports"
	"github.com/muurk/serlink/internal/settings"
	"github.com/muurk/serlink/internal/settingspage"
	"github.com/muurk/serlink/internal/ui"
)

var (
	renderOut  string
	setFlags   changeFlags
	setDryRun  bool
	portsCheck bool
)

// Replaced in tests.
var (
	listDevices = serialports.List
	checkPorts  = serialports.Check
)

func init() {
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(portsCmd)
}

// renderCmd writes the settings page
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the settings page",
	Long: `Render the settings page for the stored settings.

The page is exactly what serlink-server serves at /. It is written to
stdout unless --out names a file.`,
	Example: `  # Preview in a browser
  serlink-cfg render --out /tmp/settings.html

  # Render a specific settings file
  serlink-cfg render --config ./bridge.yaml`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Write the page to this file instead of stdout")
}

func runRender(cmd *cobra.Command, args []string) error {
	store, ports, err := openStore(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	page, err := settingspage.NewRenderer(nil, settingspage.WithMaxPorts(ports)).RenderPage(store.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}

	if renderOut == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), page)
		return err
	}

	tmp := renderOut + ".tmp"
	if err := os.WriteFile(tmp, []byte(page), 0644); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}
	if err := os.Rename(tmp, renderOut); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write page: %w", err)
	}

	abs, _ := filepath.Abs(renderOut)
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes to %s\n", len(page), abs)
	return nil
}

// showCmd prints the stored settings
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored settings",
	Example: `  serlink-cfg show
  serlink-cfg show --format compact
  serlink-cfg show --format json`,
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	store, _, err := openStore(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if outputFormat == "detailed" {
		fmt.Fprint(cmd.OutOrStdout(), ui.NewHeader("BRIDGE SETTINGS", "serlink-cfg show",
			ui.Param{Key: "Settings", Value: store.Path()},
		).Render())
	}
	return printSnapshot(cmd.OutOrStdout(), store.Snapshot(), outputFormat)
}

// setCmd changes the stored settings
var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the stored settings",
	Long: `Change network or serial port settings in the settings file.

Port flags (--ip-port, --baud, --flow, --remove) apply to the port given by
--port. A port that does not exist yet is added with default values first.
The result is validated before it is saved; warnings are printed but do not
block the change.`,
	Example: `  # Change the network address
  serlink-cfg set --ip 10.0.0.20 --nm 255.255.255.0 --gw 10.0.0.1

  # Port 1 at 115200 baud with RTS/CTS
  serlink-cfg set --port 1 --baud 115200 --flow rtsCts

  # Preview without saving
  serlink-cfg set --port 0 --ip-port 4001 --dry-run`,
	RunE: runSet,
}

func init() {
	setFlags.register(setCmd.Flags())
	setCmd.Flags().BoolVar(&setDryRun, "dry-run", false, "Show the changes without saving")
}

func runSet(cmd *cobra.Command, args []string) error {
	store, ports, err := openStore(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	current := store.Snapshot()
	b := settings.NewBuilder(current, ports)
	if err := setFlags.apply(cmd.Flags(), b); err != nil {
		return err
	}
	if !b.HasChanges() {
		return fmt.Errorf("nothing to change; see 'serlink-cfg set --help'")
	}

	next, warnings, err := b.BuildWithWarnings()
	if err != nil {
		return fmt.Errorf("invalid settings:\n%s", settings.FormatValidationErrors(unjoin(err)))
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, settings.FormatDiff(current, next))
	if setDryRun {
		fmt.Fprintln(out, "\n(dry run, nothing saved)")
		return nil
	}

	saved, _, err := store.Replace("cli", ports, next)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	result := ui.NewSuccessResult("Settings saved",
		ui.Param{Key: "File", Value: store.Path()},
		ui.Param{Key: "Summary", Value: saved.Summary()},
	)
	if len(warnings) > 0 {
		result = ui.NewWarningResult("Settings saved with warnings",
			ui.Param{Key: "File", Value: store.Path()},
		)
		for _, w := range warnings {
			result.AddDetail("Warning", w.Error())
		}
	}
	fmt.Fprint(out, result.Render())
	return nil
}

// editCmd opens the interactive editor
var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the stored settings interactively",
	Long: `Open a full-screen editor for the stored settings.

Use the arrow keys to move and to cycle baud rate and flow control, enter
to edit a text field and s to save.`,
	RunE: runEdit,
}

func runEdit(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !ui.IsTerminal() {
		return fmt.Errorf("edit needs an interactive terminal; use 'serlink-cfg set' instead")
	}

	store, ports, err := openStore(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	save := func(s settings.Snapshot) ([]error, error) {
		_, warnings, err := store.Replace("editor", ports, s)
		return warnings, err
	}

	_, dirty, err := editor.Run(store.Snapshot(), ports, save)
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintln(cmd.OutOrStdout(), ui.WarningMarker+" Unsaved edits were discarded")
	}
	return nil
}

// portsCmd lists host serial devices
var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial devices and their port assignments",
	Long: `List the serial devices on this host and the configured port each one
serves. Port i is served by the i-th device in sorted order.

With --check every assigned device is opened with its port's baud rate and
flow control, then closed again. The command fails if any port cannot be
opened.`,
	Example: `  # Show assignments
  serlink-cfg ports

  # Verify each device opens with its configured line settings
  serlink-cfg ports --check`,
	RunE: runPorts,
}

func init() {
	portsCmd.Flags().BoolVar(&portsCheck, "check", false, "Open each assigned device with its configured line settings")
}

func runPorts(cmd *cobra.Command, args []string) error {
	store, _, err := openStore(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	devices, err := listDevices()
	if err != nil {
		return err
	}
	bindings := serialports.Bind(store.Snapshot(), devices)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Found %d serial device(s)\n\n", len(devices))
	if !portsCheck {
		for _, b := range bindings {
			fmt.Fprintf(out, "  %-20s %s\n", deviceName(b), b.Port)
		}
		return nil
	}

	failed := 0
	for _, r := range checkPorts(bindings) {
		if r.OK() {
			fmt.Fprintf(out, "  %s %-20s %s\n", ui.SuccessMarker, deviceName(r.Binding), r.Port)
			continue
		}
		failed++
		fmt.Fprintf(out, "  %s %-20s %s: %v\n", ui.FailureMarker, deviceName(r.Binding), r.Port, r.Err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d port(s) failed the check", failed, len(bindings))
	}
	return nil
}

func deviceName(b serialports.Binding) string {
	if b.Device == "" {
		return "(no device)"
	}
	return b.Device
}

// unjoin splits an errors.Join result back into its parts.
func unjoin(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
