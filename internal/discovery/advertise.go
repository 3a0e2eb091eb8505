package discovery

import (
	"fmt"
	"os"
	"strconv"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/serlink/internal/logging"
)

// Announcement describes the settings page to advertise.
type Announcement struct {
	Instance string // mDNS instance name; the host name when empty
	Port     int    // HTTP port of the settings page
	Ports    int    // serial port count
	Version  string
}

// TXT returns the TXT records for a.
func (a Announcement) TXT() []string {
	txt := []string{
		TxtService + "=" + ServiceMarker,
		TxtPath + "=/",
		TxtPorts + "=" + strconv.Itoa(a.Ports),
	}
	if a.Version != "" {
		txt = append(txt, TxtVersion+"="+a.Version)
	}
	return txt
}

// Advertise registers the settings page as an _http._tcp service and
// returns a function that withdraws it.
func Advertise(a Announcement) (func(), error) {
	if a.Port <= 0 || a.Port > 65535 {
		return nil, fmt.Errorf("invalid advertise port %d", a.Port)
	}

	instance := a.Instance
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("cannot determine host name: %w", err)
		}
		instance = ServiceMarker + "-" + host
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, a.Port, a.TXT(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising settings page over mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", a.Port),
	)

	return func() {
		server.Shutdown()
		logging.Debug("mDNS advertisement withdrawn", zap.String("instance", instance))
	}, nil
}
