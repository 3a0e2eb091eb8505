package discovery

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/serlink/internal/logging"
)

const (
	// ServiceType is the mDNS service type the settings page is announced as
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for bridge discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is assumed when an entry carries no port
	DefaultPort = 80

	// TXT record keys and the service marker value.
	TxtService = "svc"
	TxtPath    = "path"
	TxtPorts   = "ports"
	TxtVersion = "version"

	ServiceMarker = "serlink"
)

// Scanner handles mDNS bridge discovery
type Scanner struct {
	// Timeout is the maximum time to wait for discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan browses for serlink bridges until the timeout or ctx ends and
// returns them sorted by instance name. Other _http._tcp services are
// ignored.
func (s *Scanner) Scan(ctx context.Context) ([]*Bridge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	var mu sync.Mutex
	found := make(map[string]*Bridge)
	entries := make(chan *zeroconf.ServiceEntry)

	go func() {
		for entry := range entries {
			b := parseServiceEntry(entry)
			if b == nil {
				continue
			}
			mu.Lock()
			found[b.Instance] = b
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()

	bridges := make([]*Bridge, 0, len(found))
	for _, b := range found {
		bridges = append(bridges, b)
	}
	sort.Slice(bridges, func(i, j int) bool { return bridges[i].Instance < bridges[j].Instance })

	logging.Debug("mDNS scan finished", zap.Int("bridges", len(bridges)))
	return bridges, nil
}

// WaitForBridge browses until a bridge with the given instance name
// appears or the timeout expires.
func (s *Scanner) WaitForBridge(ctx context.Context, instance string) (*Bridge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	bridgeChan := make(chan *Bridge, 1)

	go func() {
		for entry := range entries {
			b := parseServiceEntry(entry)
			if b != nil && b.Instance == instance {
				select {
				case bridgeChan <- b:
				default:
				}
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case b := <-bridgeChan:
		return b, nil
	case <-ctx.Done():
		select {
		case b := <-bridgeChan:
			return b, nil
		default:
		}
		return nil, fmt.Errorf("bridge %q not found within timeout", instance)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Bridge.
// Returns nil if the entry is not a serlink bridge or has no address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Bridge {
	metadata := parseTXT(entry.Text)
	if metadata[TxtService] != ServiceMarker {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	ports := -1
	if v, ok := metadata[TxtPorts]; ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			ports = n
		}
	}

	return &Bridge{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Ports:        ports,
		Version:      metadata[TxtVersion],
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// parseTXT splits "key=value" records. A key without "=" maps to "".
func parseTXT(records []string) map[string]string {
	metadata := make(map[string]string, len(records))
	for _, txt := range records {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}
	return metadata
}

// Scan is a convenience function to scan with a custom timeout
func Scan(ctx context.Context, timeout time.Duration) ([]*Bridge, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.Scan(ctx)
}
