package settings

import (
	"fmt"
	"math/bits"
	"net/netip"
	"strings"
	"unicode/utf8"
)

// ValidateIPv4 validates a dotted-quad IPv4 address.
func ValidateIPv4(field, value string) error {
	if value == "" {
		return NewValidationError(field, "address cannot be empty")
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return NewValidationError(field, fmt.Sprintf("%q is not a valid address", value))
	}
	if !addr.Is4() {
		return NewValidationError(field, fmt.Sprintf("%q is not an IPv4 address", value))
	}
	return nil
}

// ValidateNetmask validates a dotted-quad netmask.
// The mask must be a contiguous run of one bits (e.g. 255.255.255.0).
func ValidateNetmask(value string) error {
	if err := ValidateIPv4(FieldNetmask, value); err != nil {
		return err
	}
	if _, ok := maskBits(value); !ok {
		return NewValidationError(FieldNetmask, fmt.Sprintf("%q is not a contiguous netmask", value))
	}
	return nil
}

// maskBits returns the prefix length of a contiguous netmask.
func maskBits(value string) (int, bool) {
	addr, err := netip.ParseAddr(value)
	if err != nil || !addr.Is4() {
		return 0, false
	}
	b := addr.As4()
	m := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	ones := bits.LeadingZeros32(^m)
	if m<<ones != 0 {
		return 0, false
	}
	return ones, true
}

// ValidateIPPort validates a TCP port number.
// Valid range: 1-65535
func ValidateIPPort(field string, port int) error {
	if port <= 0 || port > 65535 {
		return NewValidationError(field, fmt.Sprintf("IP port must be 1-65535, got %d", port))
	}
	return nil
}

// ValidatePort validates a single port configuration against the device limit.
func ValidatePort(p PortConfig, maxPorts int) []error {
	var errs []error

	if p.Index < 0 || p.Index >= maxPorts {
		errs = append(errs, NewValidationError(p.Label(),
			fmt.Sprintf("port index must be 0-%d, got %d", maxPorts-1, p.Index)))
	}

	if err := ValidateIPPort(PortField(PrefixIPPort, p.Index), p.IPPort); err != nil {
		errs = append(errs, err)
	}

	if !p.BaudRate.Valid() {
		errs = append(errs, NewEnumError(PortField(PrefixBaudRate, p.Index), int(p.BaudRate), baudRateNames()))
	}

	if !p.FlowControl.Valid() {
		errs = append(errs, NewEnumError(PortField(PrefixFlow, p.Index), string(p.FlowControl),
			[]string{string(FlowNone), string(FlowRTSCTS), string(FlowXONXOFF)}))
	}

	return errs
}

// Validate validates a complete snapshot.
// This is the entry point used by every path that writes settings.
// Returns a slice of validation errors (empty if valid); entries whose message
// starts with "warning:" do not block an update.
func Validate(s Snapshot, maxPorts int) []error {
	var errs []error

	if len(s.Ports) > maxPorts {
		errs = append(errs, NewPortCountError(len(s.Ports), maxPorts))
	}

	if err := ValidateIPv4(FieldIP, s.IP); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateNetmask(s.Netmask); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateIPv4(FieldGateway, s.Gateway); err != nil {
		errs = append(errs, err)
	}

	indexes := make(map[int]bool)
	tcpPorts := make(map[int]int)
	for _, p := range s.Ports {
		errs = append(errs, ValidatePort(p, maxPorts)...)

		if indexes[p.Index] {
			errs = append(errs, NewValidationError(p.Label(), "duplicate port index"))
		}
		indexes[p.Index] = true

		if other, dup := tcpPorts[p.IPPort]; dup {
			errs = append(errs, NewValidationError(PortField(PrefixIPPort, p.Index),
				fmt.Sprintf("IP port %d already used by port_%d", p.IPPort, other)))
		} else {
			tcpPorts[p.IPPort] = p.Index
		}
	}

	errs = append(errs, CheckLogicalConflicts(s)...)

	return errs
}

// CheckLogicalConflicts reports settings that are valid individually but
// suspicious together. All results are warnings.
func CheckLogicalConflicts(s Snapshot) []error {
	var warnings []error

	ip, errIP := netip.ParseAddr(s.IP)
	gw, errGW := netip.ParseAddr(s.Gateway)
	ones, okMask := maskBits(s.Netmask)
	if errIP != nil || errGW != nil || !okMask || !ip.Is4() || !gw.Is4() {
		return nil
	}

	prefix := netip.PrefixFrom(ip, ones).Masked()
	if !prefix.Contains(gw) {
		warnings = append(warnings, NewValidationError(FieldGateway,
			fmt.Sprintf("warning: gateway %s is outside subnet %s", s.Gateway, prefix)))
	}
	if ip == gw {
		warnings = append(warnings, NewValidationError(FieldGateway,
			"warning: gateway is the device's own address"))
	}

	return warnings
}

// ValidateEncoding checks that every string field can be written into HTML.
// Invalid UTF-8 and NUL bytes cannot be represented in the page.
func ValidateEncoding(s Snapshot) error {
	fields := []struct {
		name  string
		value string
	}{
		{FieldIP, s.IP},
		{FieldNetmask, s.Netmask},
		{FieldGateway, s.Gateway},
	}
	for _, f := range fields {
		if err := checkEncodable(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

func checkEncodable(field, value string) error {
	if !utf8.ValidString(value) {
		return NewEncodingError(field, "value is not valid UTF-8")
	}
	if strings.ContainsRune(value, 0) {
		return NewEncodingError(field, "value contains a NUL byte")
	}
	return nil
}
