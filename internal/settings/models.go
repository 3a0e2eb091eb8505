package settings

import (
	"fmt"
	"strconv"
	"strings"
)

// Form field names used by the settings page and its submission.
const (
	FieldIP      = "ip"
	FieldNetmask = "nm"
	FieldGateway = "gw"

	PrefixIPPort   = "pt"
	PrefixBaudRate = "bd"
	PrefixFlow     = "fl"
)

// PortField returns the per-port form field name, e.g. PortField("bd", 1) == "bd_1".
func PortField(prefix string, index int) string {
	return prefix + "_" + strconv.Itoa(index)
}

// BaudRate is a serial line speed in bits per second.
type BaudRate int

// Supported baud rates.
const (
	Baud115200 BaudRate = 115200
	Baud57600  BaudRate = 57600
	Baud38400  BaudRate = 38400
	Baud19200  BaudRate = 19200
	Baud9600   BaudRate = 9600
	Baud4800   BaudRate = 4800
	Baud2400   BaudRate = 2400
	Baud1200   BaudRate = 1200
)

// BaudRates lists the supported rates in the order the settings page shows them.
var BaudRates = []BaudRate{
	Baud115200, Baud57600, Baud38400, Baud19200,
	Baud9600, Baud4800, Baud2400, Baud1200,
}

// Valid reports whether b is one of the supported rates.
func (b BaudRate) Valid() bool {
	for _, r := range BaudRates {
		if r == b {
			return true
		}
	}
	return false
}

// String returns the rate as its option value, e.g. "9600".
func (b BaudRate) String() string {
	return strconv.Itoa(int(b))
}

// ParseBaudRate parses an option value into a supported baud rate.
func ParseBaudRate(s string) (BaudRate, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, NewParseError("", fmt.Sprintf("baud rate %q is not a number", s), err)
	}
	b := BaudRate(n)
	if !b.Valid() {
		return 0, NewEnumError("", n, baudRateNames())
	}
	return b, nil
}

func baudRateNames() []string {
	names := make([]string, len(BaudRates))
	for i, r := range BaudRates {
		names[i] = r.String()
	}
	return names
}

// FlowControl is the serial line flow control mode.
type FlowControl string

// Supported flow control modes.
const (
	FlowNone    FlowControl = "none"
	FlowRTSCTS  FlowControl = "rtsCts"
	FlowXONXOFF FlowControl = "xonXoff"
)

// FlowControls lists the supported modes in the order the settings page shows them.
var FlowControls = []FlowControl{FlowNone, FlowRTSCTS, FlowXONXOFF}

// Valid reports whether f is one of the supported modes.
func (f FlowControl) Valid() bool {
	switch f {
	case FlowNone, FlowRTSCTS, FlowXONXOFF:
		return true
	}
	return false
}

// Code returns the single-letter option value used in the settings form.
// Unknown modes return an empty string.
func (f FlowControl) Code() string {
	switch f {
	case FlowNone:
		return "n"
	case FlowRTSCTS:
		return "r"
	case FlowXONXOFF:
		return "x"
	}
	return ""
}

// Label returns the text shown for the mode in the settings form.
func (f FlowControl) Label() string {
	switch f {
	case FlowNone:
		return "None"
	case FlowRTSCTS:
		return "RTS/CTS"
	case FlowXONXOFF:
		return "XON/XOFF"
	}
	return string(f)
}

// ParseFlowControl accepts either a form code (n, r, x) or a mode name
// (none, rtsCts, xonXoff), case-insensitively.
func ParseFlowControl(s string) (FlowControl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "none":
		return FlowNone, nil
	case "r", "rtscts", "rts/cts":
		return FlowRTSCTS, nil
	case "x", "xonxoff", "xon/xoff":
		return FlowXONXOFF, nil
	}
	return "", NewEnumError("", s, []string{"n", "r", "x"})
}

// PortConfig holds the settings of one physical serial port.
type PortConfig struct {
	Index       int         `yaml:"index" json:"index"`
	IPPort      int         `yaml:"ip_port" json:"ipPort"`
	BaudRate    BaudRate    `yaml:"baud_rate" json:"baudRate"`
	FlowControl FlowControl `yaml:"flow_control" json:"flowControl"`
}

// Label returns the port's display label, e.g. "port_0".
func (p PortConfig) Label() string {
	return PortField("port", p.Index)
}

// Snapshot is the complete device configuration at one point in time.
// Values handed out by the store are copies and must be treated as read-only.
type Snapshot struct {
	IP      string       `yaml:"ip" json:"ip"`
	Netmask string       `yaml:"netmask" json:"netmask"`
	Gateway string       `yaml:"gateway" json:"gateway"`
	Ports   []PortConfig `yaml:"ports" json:"ports"`
}

// Defaults applied to fresh configurations.
const (
	DefaultIP       = "192.168.1.50"
	DefaultNetmask  = "255.255.255.0"
	DefaultGateway  = "192.168.1.1"
	DefaultBaseTCP  = 23
	DefaultBaudRate = Baud9600
)

// Default returns a snapshot with n ports. Port i listens on TCP 23+i at 9600 baud
// without flow control.
func Default(n int) Snapshot {
	s := Snapshot{
		IP:      DefaultIP,
		Netmask: DefaultNetmask,
		Gateway: DefaultGateway,
		Ports:   make([]PortConfig, 0, n),
	}
	for i := 0; i < n; i++ {
		s.Ports = append(s.Ports, DefaultPort(i))
	}
	return s
}

// DefaultPort returns the default settings for the port at index.
func DefaultPort(index int) PortConfig {
	return PortConfig{
		Index:       index,
		IPPort:      DefaultBaseTCP + index,
		BaudRate:    DefaultBaudRate,
		FlowControl: FlowNone,
	}
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Ports != nil {
		out.Ports = make([]PortConfig, len(s.Ports))
		copy(out.Ports, s.Ports)
	}
	return out
}

// Port returns the port with the given index.
func (s Snapshot) Port(index int) (PortConfig, bool) {
	for _, p := range s.Ports {
		if p.Index == index {
			return p, true
		}
	}
	return PortConfig{}, false
}

// portRef returns a pointer to the port with the given index inside s.Ports.
func (s *Snapshot) portRef(index int) *PortConfig {
	for i := range s.Ports {
		if s.Ports[i].Index == index {
			return &s.Ports[i]
		}
	}
	return nil
}

// Equal reports whether two snapshots hold the same values.
func (s Snapshot) Equal(other Snapshot) bool {
	return len(ChangedFields(s, other)) == 0
}

// ChangedFields lists the form field names whose values differ between old and new.
// Ports present on only one side are reported by all three of their fields.
func ChangedFields(old, new Snapshot) []string {
	var changed []string

	if old.IP != new.IP {
		changed = append(changed, FieldIP)
	}
	if old.Netmask != new.Netmask {
		changed = append(changed, FieldNetmask)
	}
	if old.Gateway != new.Gateway {
		changed = append(changed, FieldGateway)
	}

	seen := make(map[int]bool)
	for _, np := range new.Ports {
		seen[np.Index] = true
		op, ok := old.Port(np.Index)
		if !ok || op.IPPort != np.IPPort {
			changed = append(changed, PortField(PrefixIPPort, np.Index))
		}
		if !ok || op.BaudRate != np.BaudRate {
			changed = append(changed, PortField(PrefixBaudRate, np.Index))
		}
		if !ok || op.FlowControl != np.FlowControl {
			changed = append(changed, PortField(PrefixFlow, np.Index))
		}
	}
	for _, op := range old.Ports {
		if seen[op.Index] {
			continue
		}
		changed = append(changed,
			PortField(PrefixIPPort, op.Index),
			PortField(PrefixBaudRate, op.Index),
			PortField(PrefixFlow, op.Index),
		)
	}

	return changed
}
