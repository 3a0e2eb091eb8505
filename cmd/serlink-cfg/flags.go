package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/muurk/serlink/internal/config"
	"github.com/muurk/serlink/internal/settings"
	"github.com/muurk/serlink/internal/ui"
)

// Settings change flags shared by "set" and "remote set"
type changeFlags struct {
	ip      string
	netmask string
	gateway string
	port    int
	ipPort  int
	baud    string
	flow    string
	remove  bool
}

func (c *changeFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&c.ip, "ip", "", "Device IP address")
	fs.StringVar(&c.netmask, "nm", "", "Netmask")
	fs.StringVar(&c.gateway, "gw", "", "Default gateway")
	fs.IntVar(&c.port, "port", -1, "Serial port index the port flags apply to")
	fs.IntVar(&c.ipPort, "ip-port", 0, "TCP port for the serial port")
	fs.StringVar(&c.baud, "baud", "", "Baud rate (e.g. 9600, 115200)")
	fs.StringVar(&c.flow, "flow", "", "Flow control (none, rtsCts, xonXoff or n, r, x)")
	fs.BoolVar(&c.remove, "remove", false, "Remove the serial port given by --port")
}

// apply copies the flags that were set on fs into b.
func (c *changeFlags) apply(fs *pflag.FlagSet, b *settings.Builder) error {
	if fs.Changed("ip") {
		b.SetIP(c.ip)
	}
	if fs.Changed("nm") {
		b.SetNetmask(c.netmask)
	}
	if fs.Changed("gw") {
		b.SetGateway(c.gateway)
	}

	portScoped := fs.Changed("ip-port") || fs.Changed("baud") || fs.Changed("flow") || c.remove
	if !portScoped {
		return nil
	}
	if c.port < 0 {
		return fmt.Errorf("--port is required with --ip-port, --baud, --flow and --remove")
	}

	if c.remove {
		b.RemovePort(c.port)
		return nil
	}
	if fs.Changed("ip-port") {
		b.SetIPPort(c.port, c.ipPort)
	}
	if fs.Changed("baud") {
		rate, err := settings.ParseBaudRate(c.baud)
		if err != nil {
			return fmt.Errorf("--baud: %w", err)
		}
		b.SetBaud(c.port, rate)
	}
	if fs.Changed("flow") {
		flow, err := settings.ParseFlowControl(c.flow)
		if err != nil {
			return fmt.Errorf("--flow: %w", err)
		}
		b.SetFlow(c.port, flow)
	}
	return nil
}

// openStore opens the settings file named by --config and resolves the
// port capacity from --max-ports or the stored preferences.
func openStore(errOut io.Writer) (*config.Store, int, error) {
	store, err := config.Open(configPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open settings: %w", err)
	}
	ports := maxPorts
	if ports <= 0 {
		ports = store.MaxPorts(config.DefaultMaxPorts)
	}
	for _, p := range store.Fit(ports) {
		fmt.Fprintf(errOut, "%s ignoring %s (device has %d ports)\n", ui.WarningMarker, p.Label(), ports)
	}
	return store, ports, nil
}

// printSnapshot writes s in the format selected by --format.
func printSnapshot(w io.Writer, s settings.Snapshot, format string) error {
	switch format {
	case "compact":
		fmt.Fprint(w, s.FormatCompact())
	case "json":
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
	case "detailed":
		fmt.Fprintln(w, s.FormatDetailed())
	default:
		return fmt.Errorf("unknown format %q (use detailed, compact or json)", format)
	}
	return nil
}

func warningLines(warnings []error) []string {
	lines := make([]string, 0, len(warnings))
	for _, w := range warnings {
		lines = append(lines, w.Error())
	}
	return lines
}
