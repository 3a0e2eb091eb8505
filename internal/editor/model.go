package editor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/serlink/internal/settings"
	"github.com/muurk/serlink/internal/ui"
)

// Saver persists a snapshot and returns validation warnings.
type Saver func(settings.Snapshot) (warnings []error, err error)

type rowKind int

const (
	rowText rowKind = iota
	rowBaud
	rowFlow
)

// row is one editable line. port is the slice position in Ports, or -1
// for network fields.
type row struct {
	kind  rowKind
	field string
	port  int
	label string
}

type savedMsg struct {
	snapshot settings.Snapshot
	warnings []error
	err      error
}

// Model is the bubbletea model of the settings editor.
type Model struct {
	original settings.Snapshot
	pending  settings.Snapshot
	maxPorts int
	save     Saver

	rows    []row
	cursor  int
	editing bool
	input   textinput.Model

	status    string
	statusErr bool
	saving    bool

	width int
	keys  keyMap
	help  help.Model
}

// New creates an editor for s.
func New(s settings.Snapshot, maxPorts int, save Saver) Model {
	input := textinput.New()
	input.CharLimit = 15
	input.Width = 20

	m := Model{
		original: s.Clone(),
		pending:  s.Clone(),
		maxPorts: maxPorts,
		save:     save,
		input:    input,
		keys:     defaultKeyMap(),
		help:     help.New(),
		width:    ui.MinTerminalWidth,
	}
	m.rows = buildRows(m.pending)
	return m
}

func buildRows(s settings.Snapshot) []row {
	rows := []row{
		{kind: rowText, field: settings.FieldIP, port: -1, label: "IP address"},
		{kind: rowText, field: settings.FieldNetmask, port: -1, label: "Netmask"},
		{kind: rowText, field: settings.FieldGateway, port: -1, label: "Gateway"},
	}
	for i, p := range s.Ports {
		rows = append(rows,
			row{kind: rowText, field: settings.PortField(settings.PrefixIPPort, p.Index), port: i, label: p.Label() + " IP port"},
			row{kind: rowBaud, field: settings.PortField(settings.PrefixBaudRate, p.Index), port: i, label: p.Label() + " baud"},
			row{kind: rowFlow, field: settings.PortField(settings.PrefixFlow, p.Index), port: i, label: p.Label() + " flow"},
		)
	}
	return rows
}

// Snapshot returns the edited settings.
func (m Model) Snapshot() settings.Snapshot {
	return m.pending.Clone()
}

// Dirty reports whether there are unsaved edits.
func (m Model) Dirty() bool {
	return !m.pending.Equal(m.original)
}

// Init initializes the editor
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case savedMsg:
		m.saving = false
		if msg.err != nil {
			m.setStatus(firstLine(msg.err.Error()), true)
			return m, nil
		}
		m.original = msg.snapshot.Clone()
		m.pending = msg.snapshot.Clone()
		if len(msg.warnings) > 0 {
			m.setStatus(fmt.Sprintf("Saved with %d warning(s): %s", len(msg.warnings), msg.warnings[0]), false)
		} else {
			m.setStatus(ui.SuccessMarker+" Saved", false)
		}
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateBrowsing(msg)
	}

	return m, nil
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Left):
		m.cycle(-1)

	case key.Matches(msg, m.keys.Right):
		m.cycle(1)

	case key.Matches(msg, m.keys.Edit):
		r := m.rows[m.cursor]
		if r.kind != rowText {
			m.cycle(1)
			return m, nil
		}
		m.editing = true
		m.input.SetValue(m.value(r))
		m.input.CursorEnd()
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Reset):
		m.pending = m.original.Clone()
		m.setStatus("Reverted unsaved edits", false)

	case key.Matches(msg, m.keys.Save):
		if m.saving || m.save == nil {
			return m, nil
		}
		if !m.Dirty() {
			m.setStatus("No changes to save", false)
			return m, nil
		}
		m.saving = true
		m.setStatus("Saving...", false)
		return m, saveCmd(m.save, m.pending.Clone())

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.editing = false
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Edit):
		if err := m.apply(m.rows[m.cursor], strings.TrimSpace(m.input.Value())); err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		m.editing = false
		m.input.Blur()
		m.status = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func saveCmd(save Saver, s settings.Snapshot) tea.Cmd {
	return func() tea.Msg {
		warnings, err := save(s)
		return savedMsg{snapshot: s, warnings: warnings, err: err}
	}
}

// value returns the current display value of r.
func (m Model) value(r row) string {
	switch r.field {
	case settings.FieldIP:
		return m.pending.IP
	case settings.FieldNetmask:
		return m.pending.Netmask
	case settings.FieldGateway:
		return m.pending.Gateway
	}

	p := m.pending.Ports[r.port]
	switch r.kind {
	case rowBaud:
		return p.BaudRate.String()
	case rowFlow:
		return p.FlowControl.Label()
	}
	return strconv.Itoa(p.IPPort)
}

// apply validates and stores a text value for r.
func (m *Model) apply(r row, v string) error {
	switch r.field {
	case settings.FieldIP:
		if err := settings.ValidateIPv4(settings.FieldIP, v); err != nil {
			return err
		}
		m.pending.IP = v
		return nil
	case settings.FieldNetmask:
		if err := settings.ValidateNetmask(v); err != nil {
			return err
		}
		m.pending.Netmask = v
		return nil
	case settings.FieldGateway:
		if err := settings.ValidateIPv4(settings.FieldGateway, v); err != nil {
			return err
		}
		m.pending.Gateway = v
		return nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return settings.NewParseError(r.field, fmt.Sprintf("IP port %q is not a number", v), err)
	}
	if err := settings.ValidateIPPort(r.field, n); err != nil {
		return err
	}
	m.pending.Ports[r.port].IPPort = n
	return nil
}

// cycle moves a baud or flow row to the next or previous option.
func (m *Model) cycle(delta int) {
	r := m.rows[m.cursor]
	if r.kind == rowText {
		return
	}
	p := &m.pending.Ports[r.port]

	switch r.kind {
	case rowBaud:
		p.BaudRate = settings.BaudRates[step(indexOf(settings.BaudRates, p.BaudRate), delta, len(settings.BaudRates))]
	case rowFlow:
		p.FlowControl = settings.FlowControls[step(indexOf(settings.FlowControls, p.FlowControl), delta, len(settings.FlowControls))]
	}
}

func indexOf[T comparable](list []T, v T) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

// step moves i by delta around a ring of n entries. An unknown position
// (-1) lands on the first entry.
func step(i, delta, n int) int {
	if i < 0 {
		return 0
	}
	return ((i+delta)%n + n) % n
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
