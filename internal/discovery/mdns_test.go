package discovery

import (
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/grandcat/zeroconf"
)

func entry(instance, host string, port int, ipv4 string, txt ...string) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	e.HostName = host
	e.Port = port
	if ipv4 != "" {
		e.AddrIPv4 = []net.IP{net.ParseIP(ipv4)}
	}
	e.Text = txt
	return e
}

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name      string
		entry     *zeroconf.ServiceEntry
		wantNil   bool
		wantIP    string
		wantPort  int
		wantPorts int
	}{
		{
			name:      "serlink bridge",
			entry:     entry("lab", "bridge-01.local.", 8080, "192.168.1.50", "svc=serlink", "path=/", "ports=4"),
			wantIP:    "192.168.1.50",
			wantPort:  8080,
			wantPorts: 4,
		},
		{
			name:      "no port defaults to 80",
			entry:     entry("lab", "bridge-01.local.", 0, "10.0.0.5", "svc=serlink"),
			wantIP:    "10.0.0.5",
			wantPort:  80,
			wantPorts: -1,
		},
		{
			name:      "bad ports record",
			entry:     entry("lab", "bridge-01.local.", 80, "10.0.0.5", "svc=serlink", "ports=many"),
			wantIP:    "10.0.0.5",
			wantPort:  80,
			wantPorts: -1,
		},
		{
			name:    "other http service",
			entry:   entry("printer", "printer.local.", 80, "192.168.1.9", "path=/", "rp=ipp"),
			wantNil: true,
		},
		{
			name:    "marker with other value",
			entry:   entry("x", "x.local.", 80, "192.168.1.9", "svc=other"),
			wantNil: true,
		},
		{
			name:    "no address",
			entry:   entry("lab", "bridge-01.local.", 80, "", "svc=serlink"),
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseServiceEntry(tt.entry)
			if tt.wantNil {
				if got != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("parseServiceEntry() = nil, want bridge")
			}
			if got.IP != tt.wantIP {
				t.Errorf("IP = %v, want %v", got.IP, tt.wantIP)
			}
			if got.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", got.Port, tt.wantPort)
			}
			if got.Ports != tt.wantPorts {
				t.Errorf("Ports = %v, want %v", got.Ports, tt.wantPorts)
			}
		})
	}
}

func TestParseServiceEntry_IPv6Fallback(t *testing.T) {
	e := entry("lab", "bridge.local.", 8080, "", "svc=serlink")
	e.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}

	b := parseServiceEntry(e)
	if b == nil {
		t.Fatal("parseServiceEntry() = nil")
	}
	if got := b.BaseURL(); got != "http://[fe80::1]:8080" {
		t.Errorf("BaseURL() = %v, want http://[fe80::1]:8080", got)
	}
}

func TestParseTXT(t *testing.T) {
	got := parseTXT([]string{"svc=serlink", "flag", "path=/a=b"})
	want := map[string]string{"svc": "serlink", "flag": "", "path": "/a=b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseTXT() mismatch (-want +got):\n%s", diff)
	}
}

func TestAnnouncementTXT_RoundTrip(t *testing.T) {
	a := Announcement{Instance: "lab", Port: 8080, Ports: 2, Version: "v1.0.0"}

	b := parseServiceEntry(entry(a.Instance, "bridge.local.", a.Port, "192.168.1.50", a.TXT()...))
	if b == nil {
		t.Fatal("advertised records not recognised as serlink")
	}
	if b.Ports != 2 || b.Version != "v1.0.0" || b.GetMetadata(TxtPath) != "/" {
		t.Errorf("parsed bridge = %+v", b)
	}
}

func TestAdvertise_InvalidPort(t *testing.T) {
	if _, err := Advertise(Announcement{Port: 0}); err == nil {
		t.Error("Advertise(port 0) error = nil, want error")
	}
}

func TestBridge_String(t *testing.T) {
	b := &Bridge{Instance: "lab", Hostname: "bridge-01.local.", IP: "192.168.1.50", Port: 8080}
	want := "serlink lab (bridge-01.local.) at 192.168.1.50:8080"
	if got := b.String(); got != want {
		t.Errorf("String() = %v, want %v", got, want)
	}
	if got := b.GetMetadata("missing"); got != "" {
		t.Errorf("GetMetadata() = %q, want empty", got)
	}
}

func TestNewScanner(t *testing.T) {
	if s := NewScanner(); s.Timeout != DefaultScanTimeout {
		t.Errorf("NewScanner().Timeout = %v, want %v", s.Timeout, DefaultScanTimeout)
	}
}
