package settings

import (
	"fmt"
	"strings"
)

// Summary returns a one-line summary of the snapshot
func (s Snapshot) Summary() string {
	return fmt.Sprintf("serlink %s/%d via %s (%d serial port(s))", s.IP, prefixLen(s.Netmask), s.Gateway, len(s.Ports))
}

func prefixLen(netmask string) int {
	ones, ok := maskBits(netmask)
	if !ok {
		return -1
	}
	return ones
}

// String returns a compact description of the port, e.g. "port_0 tcp/23 9600 8N1 RTS/CTS".
func (p PortConfig) String() string {
	return fmt.Sprintf("%s tcp/%d %s 8N1 %s", p.Label(), p.IPPort, p.BaudRate, p.FlowControl.Label())
}

// FormatNetwork returns a formatted string with the network configuration
func (s Snapshot) FormatNetwork() string {
	var b strings.Builder

	b.WriteString("=== Network ===\n")
	b.WriteString(fmt.Sprintf("IP address: %s\n", s.IP))
	b.WriteString(fmt.Sprintf("Netmask:    %s\n", s.Netmask))
	b.WriteString(fmt.Sprintf("Gateway:    %s\n", s.Gateway))

	return b.String()
}

// FormatPorts returns a formatted table of the serial port configuration
func (s Snapshot) FormatPorts() string {
	var b strings.Builder

	b.WriteString("=== Serial ports ===\n")
	if len(s.Ports) == 0 {
		b.WriteString("(none configured)\n")
		return b.String()
	}

	b.WriteString("Port    | IP port | Baud   | Flow ctrl\n")
	b.WriteString("--------+---------+--------+----------\n")
	for _, p := range s.Ports {
		b.WriteString(fmt.Sprintf("%-7s | %-7d | %-6s | %s\n", p.Label(), p.IPPort, p.BaudRate, p.FlowControl.Label()))
	}

	return b.String()
}

// FormatCompact returns a compact multi-line format suitable for terminal display
func (s Snapshot) FormatCompact() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Network: %s netmask %s gateway %s\n", s.IP, s.Netmask, s.Gateway))
	for _, p := range s.Ports {
		b.WriteString(fmt.Sprintf("  %s\n", p))
	}

	return b.String()
}

// FormatDetailed returns a comprehensive formatted string with all settings
func (s Snapshot) FormatDetailed() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(s.FormatNetwork())
	b.WriteString("\n")
	b.WriteString(s.FormatPorts())

	return b.String()
}

// FormatDiff returns a formatted diff between two snapshots
func FormatDiff(old, new Snapshot) string {
	var b strings.Builder

	b.WriteString("=== Settings Differences ===\n")

	changed := ChangedFields(old, new)
	if len(changed) == 0 {
		b.WriteString("\n(no differences detected)\n")
		return b.String()
	}

	for _, field := range changed {
		b.WriteString(fmt.Sprintf("  %-4s %s → %s\n", field, fieldValue(old, field), fieldValue(new, field)))
	}

	return b.String()
}

// fieldValue returns the form value of field in s, or "-" if s has no such field.
func fieldValue(s Snapshot, field string) string {
	switch field {
	case FieldIP:
		return s.IP
	case FieldNetmask:
		return s.Netmask
	case FieldGateway:
		return s.Gateway
	}

	prefix, index, ok := splitPortField(field)
	if !ok {
		return "-"
	}
	p, ok := s.Port(index)
	if !ok {
		return "-"
	}
	switch prefix {
	case PrefixIPPort:
		return fmt.Sprintf("%d", p.IPPort)
	case PrefixBaudRate:
		return p.BaudRate.String()
	default:
		return p.FlowControl.Label()
	}
}
