package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/serlink/internal/config"
	"github.com/muurk/serlink/internal/discovery"
	"github.com/muurk/serlink/internal/logging"
	"github.com/muurk/serlink/internal/serialports"
	"github.com/muurk/serlink/internal/server"
	"github.com/muurk/serlink/internal/settingspage"
	"github.com/muurk/serlink/internal/version"
)

// Serve command flags
var (
	listenAddr string
	configPath string
	maxPorts   int
	advertise  bool
	instance   string
	rebootCmd  string
	logLevel   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the settings server",
	Long: `Start the HTTP settings server.

Settings are read from and saved to settings.yaml in the serlink config
directory unless --config names another file. Flags left unset fall back
to the preferences stored in that file.

The number of serial ports the page offers is taken from --max-ports, then
the stored preferences, then the number of serial devices on this host.`,
	Example: `  # Serve on the stored (or default) address
  serlink-server serve

  # Serve on port 80 and announce over mDNS
  serlink-server serve --addr :80 --advertise

  # Four ports, reboot through systemd after /boot
  serlink-server serve --max-ports 4 --reboot-cmd "systemctl reboot"

  # Use a specific settings file with debug logging
  serlink-server serve --config ./bridge.yaml --log-level debug`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "HTTP listen address (default from preferences, else :8080)")
	serveCmd.Flags().StringVar(&configPath, "config", "", "Settings file (default: <config dir>/serlink/settings.yaml)")
	serveCmd.Flags().IntVar(&maxPorts, "max-ports", 0, "Number of serial ports (0 = from preferences or host)")
	serveCmd.Flags().BoolVar(&advertise, "advertise", false, "Announce the settings page over mDNS")
	serveCmd.Flags().StringVar(&instance, "instance", "", "mDNS instance name (default: host name)")
	serveCmd.Flags().StringVar(&rebootCmd, "reboot-cmd", "", "Command run after /boot or a reboot API call")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	store, err := config.Open(configPath)
	if err != nil {
		return fmt.Errorf("failed to open settings: %w", err)
	}
	prefs := store.Preferences()

	addr := listenAddr
	if addr == "" {
		addr = prefs.ListenAddr
	}
	if addr == "" {
		addr = config.DefaultListenAddr
	}

	ports := resolveMaxPorts(cmd.Flags().Changed("max-ports"), maxPorts, prefs.MaxPorts, serialports.Count)
	store.Fit(ports)

	cfg := &server.Config{
		Addr:     addr,
		MaxPorts: ports,
	}
	if rebootCmd != "" {
		hook, err := commandHook(rebootCmd)
		if err != nil {
			return err
		}
		cfg.Reboot = hook
	}

	renderer := settingspage.NewRenderer(nil,
		settingspage.WithMaxPorts(ports),
		settingspage.WithLogger(logging.GetLogger()),
	)
	srv := server.New(cfg, store, renderer)
	if err := srv.Listen(); err != nil {
		return err
	}

	if advertise || prefs.Advertise {
		name := instance
		if name == "" {
			name = prefs.Instance
		}
		withdraw, err := discovery.Advertise(discovery.Announcement{
			Instance: name,
			Port:     listenPort(srv.Addr()),
			Ports:    ports,
			Version:  version.Short(),
		})
		if err != nil {
			// The page still works without mDNS.
			logging.Warn("Failed to advertise settings page", zap.Error(err))
		} else {
			defer withdraw()
		}
	}

	return srv.Start(context.Background())
}

// resolveMaxPorts picks the port capacity: an explicit flag, then the stored
// preference, then the host's serial device count, then the default.
func resolveMaxPorts(flagSet bool, flagValue, preferred int, count func() (int, error)) int {
	if flagSet && flagValue >= 0 {
		return flagValue
	}
	if preferred > 0 {
		return preferred
	}
	n, err := count()
	if err != nil {
		logging.Warn("Failed to count serial ports, using default", zap.Error(err))
		return settingspage.DefaultMaxPorts
	}
	if n == 0 {
		return settingspage.DefaultMaxPorts
	}
	return n
}

// commandHook returns a reboot hook that runs line without a shell.
func commandHook(line string) (func(), error) {
	argv := strings.Fields(line)
	if len(argv) == 0 {
		return nil, fmt.Errorf("--reboot-cmd is empty")
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, fmt.Errorf("reboot command not found: %w", err)
	}

	return func() {
		c := exec.Command(argv[0], argv[1:]...)
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			logging.Error("Reboot command failed", zap.String("command", line), zap.Error(err))
		}
	}, nil
}

func listenPort(addr net.Addr) int {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}
