package settings

import (
	"strings"
	"testing"
)

func TestSnapshot_Summary(t *testing.T) {
	summary := Default(2).Summary()

	if strings.Count(summary, "\n") > 0 {
		t.Error("Summary() should return a single line")
	}
	for _, part := range []string{"192.168.1.50/24", "192.168.1.1", "2 serial port(s)"} {
		if !strings.Contains(summary, part) {
			t.Errorf("Summary() missing expected part: %s", part)
		}
	}
}

func TestSnapshot_FormatPorts(t *testing.T) {
	s := Default(1)
	s.Ports[0].FlowControl = FlowXONXOFF

	got := s.FormatPorts()
	for _, part := range []string{"Serial ports", "port_0", "23", "9600", "XON/XOFF"} {
		if !strings.Contains(got, part) {
			t.Errorf("FormatPorts() missing expected part: %s", part)
		}
	}

	if !strings.Contains(Default(0).FormatPorts(), "(none configured)") {
		t.Error("FormatPorts() should mention when no ports are configured")
	}
}

func TestSnapshot_FormatDetailed(t *testing.T) {
	got := Default(1).FormatDetailed()
	for _, part := range []string{"=== Network ===", "IP address: 192.168.1.50", "Netmask:    255.255.255.0", "=== Serial ports ==="} {
		if !strings.Contains(got, part) {
			t.Errorf("FormatDetailed() missing expected part: %s", part)
		}
	}
}

func TestPortConfig_String(t *testing.T) {
	p := PortConfig{Index: 2, IPPort: 4002, BaudRate: Baud38400, FlowControl: FlowRTSCTS}
	want := "port_2 tcp/4002 38400 8N1 RTS/CTS"
	if got := p.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestFormatDiff(t *testing.T) {
	old := Default(1)
	updated := old.Clone()
	updated.Gateway = "192.168.1.254"
	updated.Ports[0].BaudRate = Baud19200

	diff := FormatDiff(old, updated)
	for _, part := range []string{"gw", "192.168.1.1 → 192.168.1.254", "bd_0", "9600 → 19200"} {
		if !strings.Contains(diff, part) {
			t.Errorf("FormatDiff() missing expected part: %s\nGot: %s", part, diff)
		}
	}

	if !strings.Contains(FormatDiff(old, old), "no differences detected") {
		t.Error("FormatDiff() should report no differences for equal snapshots")
	}
}
