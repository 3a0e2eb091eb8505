package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Bridge represents a serlink bridge found on the network
type Bridge struct {
	// Instance is the advertised mDNS instance name (e.g., "serlink-lab")
	Instance string

	// Hostname is the mDNS hostname (e.g., "bridge-01.local.")
	Hostname string

	// IP is the IPv4 address, or IPv6 if no IPv4 was advertised
	IP string

	// Port is the settings page HTTP port
	Port int

	// Ports is the number of serial ports the bridge reports (-1 if unknown)
	Ports int

	// Version is the advertised serlink version
	Version string

	// Metadata contains all TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the bridge was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the bridge
func (b *Bridge) String() string {
	return fmt.Sprintf("serlink %s (%s) at %s", b.Instance, b.Hostname, b.Address())
}

// Address returns host:port, bracketing IPv6 addresses.
func (b *Bridge) Address() string {
	return net.JoinHostPort(b.IP, strconv.Itoa(b.Port))
}

// BaseURL returns the HTTP base URL for the bridge
func (b *Bridge) BaseURL() string {
	return "http://" + b.Address()
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (b *Bridge) GetMetadata(key string) string {
	if b.Metadata == nil {
		return ""
	}
	return b.Metadata[key]
}
