// Package serialports maps bridge port settings onto host serial devices.
package serialports

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/muurk/serlink/internal/logging"
	"github.com/muurk/serlink/internal/settings"
)

// DefaultReadTimeout is applied to ports opened with Open.
const DefaultReadTimeout = 100 * time.Millisecond

// ErrNoDevice is reported by Check for a port with no host device.
var ErrNoDevice = errors.New("no serial device for this port")

// Replaced in tests.
var (
	getPortsList = serial.GetPortsList
	openPort     = serial.Open
)

// List returns the host's serial device names, sorted.
func List() ([]string, error) {
	names, err := getPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Count returns the number of serial devices on the host.
func Count() (int, error) {
	names, err := List()
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// Mode returns the line mode for p: 8 data bits, no parity, one stop bit
// at the configured baud rate.
func Mode(p settings.PortConfig) *serial.Mode {
	return &serial.Mode{
		BaudRate: int(p.BaudRate),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Binding pairs a configured port with the host device that serves it.
type Binding struct {
	Port   settings.PortConfig
	Device string // empty when the host has no device for this index
}

// Bind assigns host devices to ports by index: port i uses the i-th name
// in sorted order.
func Bind(s settings.Snapshot, devices []string) []Binding {
	sorted := append([]string(nil), devices...)
	sort.Strings(sorted)

	out := make([]Binding, 0, len(s.Ports))
	for _, p := range s.Ports {
		b := Binding{Port: p}
		if p.Index >= 0 && p.Index < len(sorted) {
			b.Device = sorted[p.Index]
		}
		out = append(out, b)
	}
	return out
}

// Open opens device with the line mode of p. RTS is asserted for RTS/CTS
// flow control and released otherwise.
func Open(device string, p settings.PortConfig) (serial.Port, error) {
	if !p.BaudRate.Valid() {
		allowed := make([]string, len(settings.BaudRates))
		for i, r := range settings.BaudRates {
			allowed[i] = r.String()
		}
		return nil, settings.NewEnumError(settings.PortField(settings.PrefixBaudRate, p.Index), int(p.BaudRate), allowed)
	}

	port, err := openPort(device, Mode(p))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", device, err)
	}

	if err := port.SetReadTimeout(DefaultReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", device, err)
	}
	if err := port.SetRTS(p.FlowControl == settings.FlowRTSCTS); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set RTS on %s: %w", device, err)
	}

	logging.Debug("Serial port opened",
		zap.String("device", device),
		zap.String("port", p.Label()),
		zap.Int("baud_rate", int(p.BaudRate)),
		zap.String("flow_control", string(p.FlowControl)),
	)
	return port, nil
}

// CheckResult is the outcome of opening one bound device.
type CheckResult struct {
	Binding
	Err error
}

// OK reports whether the device opened with the port's line mode.
func (r CheckResult) OK() bool {
	return r.Err == nil
}

// Check opens and closes the device of every binding with its port's line
// mode. Failures are reported per binding and do not stop the check.
func Check(bindings []Binding) []CheckResult {
	out := make([]CheckResult, 0, len(bindings))
	for _, b := range bindings {
		r := CheckResult{Binding: b}
		if b.Device == "" {
			r.Err = ErrNoDevice
			out = append(out, r)
			continue
		}

		port, err := Open(b.Device, b.Port)
		if err != nil {
			r.Err = err
		} else if err := port.Close(); err != nil {
			r.Err = fmt.Errorf("failed to close %s: %w", b.Device, err)
		}
		if r.Err != nil {
			logging.Warn("Serial port check failed", zap.String("device", b.Device), zap.Error(r.Err))
		}
		out = append(out, r)
	}
	return out
}
