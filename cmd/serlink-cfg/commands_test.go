package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/muurk/serlink/internal/config"
	"github.com/muurk/serlink/internal/discovery"
	"github.com/muurk/serlink/internal/serialports"
	"github.com/muurk/serlink/internal/settings"
)

func parseChangeFlags(t *testing.T, args ...string) (*changeFlags, *pflag.FlagSet) {
	t.Helper()
	var c changeFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return &c, fs
}

func TestChangeFlags_Apply(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, s settings.Snapshot)
	}{
		{
			name: "network",
			args: []string{"--ip", "10.0.0.20", "--gw", "10.0.0.1"},
			check: func(t *testing.T, s settings.Snapshot) {
				if s.IP != "10.0.0.20" || s.Gateway != "10.0.0.1" || s.Netmask != settings.DefaultNetmask {
					t.Errorf("network = %s/%s/%s", s.IP, s.Netmask, s.Gateway)
				}
			},
		},
		{
			name: "port settings",
			args: []string{"--port", "1", "--baud", "115200", "--flow", "r", "--ip-port", "4001"},
			check: func(t *testing.T, s settings.Snapshot) {
				p, _ := s.Port(1)
				want := settings.PortConfig{Index: 1, IPPort: 4001, BaudRate: settings.Baud115200, FlowControl: settings.FlowRTSCTS}
				if p != want {
					t.Errorf("Port(1) = %+v, want %+v", p, want)
				}
			},
		},
		{
			name: "remove",
			args: []string{"--port", "0", "--remove"},
			check: func(t *testing.T, s settings.Snapshot) {
				if _, ok := s.Port(0); ok {
					t.Error("port 0 still present")
				}
			},
		},
		{name: "port flag required", args: []string{"--baud", "9600"}, wantErr: true},
		{name: "unsupported baud", args: []string{"--port", "0", "--baud", "300"}, wantErr: true},
		{name: "unknown flow", args: []string{"--port", "0", "--flow", "dtr"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, fs := parseChangeFlags(t, tt.args...)
			b := settings.NewBuilder(settings.Default(2), 4)

			err := c.apply(fs, b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("apply() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			s, err := b.Build()
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			tt.check(t, s)
		})
	}
}

func TestChangeFlags_UnsupportedBaudIsEnumError(t *testing.T) {
	c, fs := parseChangeFlags(t, "--port", "0", "--baud", "300")
	err := c.apply(fs, settings.NewBuilder(settings.Default(1), 4))
	if !settings.IsInvalidEnumValue(err) {
		t.Errorf("apply() error = %v, want InvalidEnumValue", err)
	}
}

func TestPrintSnapshot(t *testing.T) {
	s := settings.Default(1)

	var buf bytes.Buffer
	if err := printSnapshot(&buf, s, "json"); err != nil {
		t.Fatalf("printSnapshot(json) error = %v", err)
	}
	var decoded settings.Snapshot
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if !decoded.Equal(s) {
		t.Errorf("decoded = %+v, want %+v", decoded, s)
	}

	buf.Reset()
	if err := printSnapshot(&buf, s, "compact"); err != nil {
		t.Fatalf("printSnapshot(compact) error = %v", err)
	}
	if !strings.Contains(buf.String(), "port_0 tcp/23") {
		t.Errorf("compact output = %q", buf.String())
	}

	if err := printSnapshot(&buf, s, "yaml"); err == nil {
		t.Error("printSnapshot(yaml) should fail")
	}
}

func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		configPath, maxPorts, outputFormat, renderOut = "", 0, "detailed", ""
		portsCheck = false
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSetAndRender(t *testing.T) {
	t.Setenv("SERLINK_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "settings.yaml")

	if _, err := executeCmd(t, "set", "--config", path, "--port", "0", "--baud", "115200", "--flow", "rtsCts"); err != nil {
		t.Fatalf("set error = %v", err)
	}

	store, err := config.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	p, _ := store.Snapshot().Port(0)
	if p.BaudRate != settings.Baud115200 || p.FlowControl != settings.FlowRTSCTS {
		t.Errorf("stored port 0 = %+v", p)
	}

	page := filepath.Join(t.TempDir(), "page.html")
	if _, err := executeCmd(t, "render", "--config", path, "--out", page); err != nil {
		t.Fatalf("render error = %v", err)
	}
	data, err := os.ReadFile(page)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `value='115200' selected`) {
		t.Error("rendered page does not select 115200")
	}
}

func TestSet_RejectsInvalid(t *testing.T) {
	t.Setenv("SERLINK_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "settings.yaml")

	_, err := executeCmd(t, "set", "--config", path, "--ip", "10.0.0.300")
	if err == nil {
		t.Fatal("set with invalid IP should fail")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("settings file was written for an invalid change")
	}
}

func TestSet_SmallDeviceFreshConfig(t *testing.T) {
	t.Setenv("SERLINK_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "settings.yaml")

	if _, err := executeCmd(t, "set", "--config", path, "--max-ports", "2", "--port", "1", "--baud", "19200"); err != nil {
		t.Fatalf("set error = %v", err)
	}

	store, err := config.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	snap := store.Snapshot()
	if len(snap.Ports) != 2 {
		t.Fatalf("stored %d ports, want 2", len(snap.Ports))
	}
	if p, _ := snap.Port(1); p.BaudRate != settings.Baud19200 {
		t.Errorf("stored port 1 = %+v", p)
	}
}

func TestShow_IgnoresPortsBeyondDevice(t *testing.T) {
	t.Setenv("SERLINK_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "settings.yaml")

	if _, err := executeCmd(t, "set", "--config", path, "--port", "3", "--baud", "4800"); err != nil {
		t.Fatalf("set error = %v", err)
	}

	out, err := executeCmd(t, "show", "--config", path, "--max-ports", "2", "--format", "json")
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	if !strings.Contains(out, "ignoring") {
		t.Errorf("show output does not warn about dropped ports:\n%s", out)
	}
	if strings.Contains(out, "4800") {
		t.Errorf("show output still lists port 3:\n%s", out)
	}
}

func TestPorts_Check(t *testing.T) {
	t.Setenv("SERLINK_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "settings.yaml")

	origList, origCheck := listDevices, checkPorts
	t.Cleanup(func() { listDevices, checkPorts = origList, origCheck })

	listDevices = func() ([]string, error) { return []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}, nil }
	var checked []serialports.Binding
	checkPorts = func(bindings []serialports.Binding) []serialports.CheckResult {
		checked = bindings
		out := make([]serialports.CheckResult, len(bindings))
		for i, b := range bindings {
			out[i] = serialports.CheckResult{Binding: b}
			if b.Device == "" {
				out[i].Err = serialports.ErrNoDevice
			}
		}
		return out
	}

	out, err := executeCmd(t, "ports", "--config", path, "--max-ports", "2")
	if err != nil {
		t.Fatalf("ports error = %v", err)
	}
	if checked != nil {
		t.Error("ports without --check opened devices")
	}
	if !strings.Contains(out, "/dev/ttyUSB1") {
		t.Errorf("ports output missing device:\n%s", out)
	}

	if _, err := executeCmd(t, "ports", "--config", path, "--max-ports", "2", "--check"); err != nil {
		t.Errorf("ports --check with all devices present error = %v", err)
	}
	if len(checked) != 2 {
		t.Errorf("ports --check checked %d bindings, want 2", len(checked))
	}

	maxPorts = 0 // flag values persist across Execute calls
	out, err = executeCmd(t, "ports", "--config", path, "--check")
	if err == nil {
		t.Fatal("ports --check with a missing device should fail")
	}
	if !strings.Contains(out, serialports.ErrNoDevice.Error()) {
		t.Errorf("ports --check output missing failure reason:\n%s", out)
	}
	if !strings.Contains(err.Error(), "2 of 4") {
		t.Errorf("ports --check error = %v, want 2 of 4 failed", err)
	}
}

var errNoMulticast = errors.New("no multicast interface")

func stubDiscovery(t *testing.T, found []*discovery.Bridge) *[]string {
	t.Helper()
	origScan, origWait := scanBridges, waitForBridge
	t.Cleanup(func() {
		scanBridges, waitForBridge = origScan, origWait
		remoteURL, remoteName = "", ""
	})

	var waited []string
	scanBridges = func(ctx context.Context, timeout time.Duration) ([]*discovery.Bridge, error) {
		return found, nil
	}
	waitForBridge = func(ctx context.Context, instance string, timeout time.Duration) (*discovery.Bridge, error) {
		waited = append(waited, instance)
		for _, b := range found {
			if b.Instance == instance {
				return b, nil
			}
		}
		return nil, errNoMulticast
	}
	return &waited
}

func TestBridgeURL(t *testing.T) {
	lab := &discovery.Bridge{Instance: "lab", IP: "10.0.0.20", Port: 8080}
	bench := &discovery.Bridge{Instance: "bench", IP: "10.0.0.21", Port: 80}

	tests := []struct {
		name       string
		url        string
		instance   string
		found      []*discovery.Bridge
		want       string
		wantErr    bool
		wantWaited bool
	}{
		{name: "explicit url", url: "10.0.0.9:8080", found: []*discovery.Bridge{lab}, want: "10.0.0.9:8080"},
		{name: "single bridge", found: []*discovery.Bridge{lab}, want: "http://10.0.0.20:8080"},
		{name: "none found", wantErr: true},
		{name: "ambiguous", found: []*discovery.Bridge{lab, bench}, wantErr: true},
		{name: "instance picks one", instance: "bench", found: []*discovery.Bridge{lab, bench}, want: "http://10.0.0.21:80", wantWaited: true},
		{name: "instance not announced", instance: "attic", found: []*discovery.Bridge{lab}, wantErr: true, wantWaited: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			waited := stubDiscovery(t, tt.found)
			remoteURL, remoteName = tt.url, tt.instance

			var errOut bytes.Buffer
			got, err := bridgeURL(context.Background(), &errOut)
			if (err != nil) != tt.wantErr {
				t.Fatalf("bridgeURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("bridgeURL() = %v, want %v", got, tt.want)
			}
			if (len(*waited) > 0) != tt.wantWaited {
				t.Errorf("bridgeURL() waited for %v, wantWaited %v", *waited, tt.wantWaited)
			}
		})
	}
}
