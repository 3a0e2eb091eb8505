package editor

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/serlink/internal/settings"
)

// Run starts the editor full-screen and returns the final snapshot and
// whether it differs from what was last saved.
func Run(s settings.Snapshot, maxPorts int, save Saver) (settings.Snapshot, bool, error) {
	p := tea.NewProgram(New(s, maxPorts, save), tea.WithAltScreen())

	final, err := p.Run()
	if err != nil {
		return s, false, fmt.Errorf("editor failed: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return s, false, fmt.Errorf("unexpected editor model %T", final)
	}
	return m.Snapshot(), m.Dirty(), nil
}
