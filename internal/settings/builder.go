package settings

// Builder provides a fluent API for building a settings snapshot.
// Changes are applied to a copy of the baseline and validated by Build.
//
// Example usage:
//
//	snap, err := settings.NewBuilder(current, 4).
//	    SetNetwork("10.0.0.20", "255.255.255.0", "10.0.0.1").
//	    SetBaud(0, settings.Baud115200).
//	    SetFlow(0, settings.FlowRTSCTS).
//	    Build()
type Builder struct {
	snapshot Snapshot
	maxPorts int
	changed  bool
}

// NewBuilder creates a builder with current as the baseline.
func NewBuilder(current Snapshot, maxPorts int) *Builder {
	return &Builder{
		snapshot: current.Clone(),
		maxPorts: maxPorts,
	}
}

// SetIP sets the device IP address.
func (b *Builder) SetIP(ip string) *Builder {
	b.snapshot.IP = ip
	b.changed = true
	return b
}

// SetNetmask sets the device netmask.
func (b *Builder) SetNetmask(netmask string) *Builder {
	b.snapshot.Netmask = netmask
	b.changed = true
	return b
}

// SetGateway sets the default gateway.
func (b *Builder) SetGateway(gateway string) *Builder {
	b.snapshot.Gateway = gateway
	b.changed = true
	return b
}

// SetNetwork sets all three network fields at once.
func (b *Builder) SetNetwork(ip, netmask, gateway string) *Builder {
	return b.SetIP(ip).SetNetmask(netmask).SetGateway(gateway)
}

// port returns the port at index, adding it with defaults if missing.
func (b *Builder) port(index int) *PortConfig {
	if p := b.snapshot.portRef(index); p != nil {
		return p
	}
	b.snapshot.Ports = append(b.snapshot.Ports, DefaultPort(index))
	return &b.snapshot.Ports[len(b.snapshot.Ports)-1]
}

// SetPort replaces the settings of the port with p.Index.
func (b *Builder) SetPort(p PortConfig) *Builder {
	*b.port(p.Index) = p
	b.changed = true
	return b
}

// SetIPPort sets the TCP port a serial port is exposed on.
func (b *Builder) SetIPPort(index, ipPort int) *Builder {
	b.port(index).IPPort = ipPort
	b.changed = true
	return b
}

// SetBaud sets the baud rate of a serial port.
func (b *Builder) SetBaud(index int, rate BaudRate) *Builder {
	b.port(index).BaudRate = rate
	b.changed = true
	return b
}

// SetFlow sets the flow control mode of a serial port.
func (b *Builder) SetFlow(index int, flow FlowControl) *Builder {
	b.port(index).FlowControl = flow
	b.changed = true
	return b
}

// RemovePort drops the port with the given index.
func (b *Builder) RemovePort(index int) *Builder {
	ports := b.snapshot.Ports[:0]
	for _, p := range b.snapshot.Ports {
		if p.Index != index {
			ports = append(ports, p)
		} else {
			b.changed = true
		}
	}
	b.snapshot.Ports = ports
	return b
}

// HasChanges reports whether any setter was called.
func (b *Builder) HasChanges() bool {
	return b.changed
}

// Build validates the snapshot and returns it.
// Warnings are returned alongside a nil error so callers can display them.
func (b *Builder) Build() (Snapshot, error) {
	snap, _, err := b.BuildWithWarnings()
	return snap, err
}

// BuildWithWarnings is Build that also returns non-blocking warnings.
func (b *Builder) BuildWithWarnings() (Snapshot, []error, error) {
	errs := Validate(b.snapshot, b.maxPorts)
	warnings, critical := SeparateWarningsAndErrors(errs)
	if len(critical) > 0 {
		return Snapshot{}, warnings, Join(critical)
	}
	return b.snapshot.Clone(), warnings, nil
}
