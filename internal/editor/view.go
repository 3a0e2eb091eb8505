package editor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/serlink/internal/settings"
	"github.com/muurk/serlink/internal/ui"
)

var labelStyle = lipgloss.NewStyle().Width(22)

// View renders the editor
func (m Model) View() string {
	var b strings.Builder

	title := "serlink settings"
	if m.Dirty() {
		title += " (modified)"
	}
	b.WriteString(ui.SuccessTitleStyle.Render(title))
	b.WriteString("\n\n")

	for i, r := range m.rows {
		if i == 3 {
			b.WriteString("\n")
		} else if i > 3 && r.kind == rowText {
			b.WriteString("\n")
		}

		cursor := "  "
		label := labelStyle.Render(r.label)
		if i == m.cursor {
			cursor = ui.CursorMarker + " "
			label = ui.SelectedStyle.Render(labelStyle.Render(r.label))
		}

		value := m.value(r)
		switch {
		case i == m.cursor && m.editing:
			value = m.input.View()
		case r.kind != rowText:
			value = "‹ " + value + " ›"
		}

		b.WriteString(cursor + label + " " + value + "\n")
	}

	b.WriteString("\n")
	if problems := m.problems(); problems != "" {
		b.WriteString(ui.ErrorMessageStyle.Render(problems))
		b.WriteString("\n")
	}
	if m.status != "" {
		if m.statusErr {
			b.WriteString(ui.ErrorMessageStyle.Render(ui.FailureMarker + " " + m.status))
		} else {
			b.WriteString(ui.MutedStyle.Render(m.status))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// problems summarises blocking validation errors of the pending snapshot.
func (m Model) problems() string {
	_, errs := settings.SeparateWarningsAndErrors(settings.Validate(m.pending, m.maxPorts))
	if len(errs) == 0 {
		return ""
	}
	return fmt.Sprintf("%s %d problem(s): %s", ui.WarningMarker, len(errs), errs[0])
}
