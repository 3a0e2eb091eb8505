package config

import (
	"github.com/muurk/serlink/internal/settings"
)

// currentVersion is the settings file format version.
const currentVersion = 1

// File is the on-disk layout of settings.yaml.
type File struct {
	Version     int               `yaml:"version"`
	Settings    settings.Snapshot `yaml:"settings"`
	Preferences *Preferences      `yaml:"preferences,omitempty"`
}

// Preferences holds service options that are not part of the device page.
type Preferences struct {
	MaxPorts   int    `yaml:"max_ports"`          // Serial port capacity; 0 means count host ports
	ListenAddr string `yaml:"listen_addr"`        // HTTP listen address for serlink-server
	Advertise  bool   `yaml:"advertise"`          // Announce the settings page over mDNS
	Instance   string `yaml:"instance,omitempty"` // mDNS instance name; hostname when empty
}

// Default preference values.
const (
	DefaultListenAddr = ":8080"
	DefaultMaxPorts   = 4
)

// DefaultPreferences returns the preferences used when the file has none.
func DefaultPreferences() *Preferences {
	return &Preferences{
		MaxPorts:   DefaultMaxPorts,
		ListenAddr: DefaultListenAddr,
		Advertise:  false,
	}
}

// NewFile returns a fresh settings file with default settings for
// DefaultMaxPorts ports.
func NewFile() *File {
	return &File{
		Version:     currentVersion,
		Settings:    settings.Default(DefaultMaxPorts),
		Preferences: DefaultPreferences(),
	}
}

func (p *Preferences) clone() *Preferences {
	if p == nil {
		return DefaultPreferences()
	}
	c := *p
	return &c
}
