package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/adindex/internal/apperr"
)

// renderFatal renders the full-page error shown when the client could not
// start. There is no retry; the user can only quit.
func (m Model) renderFatal() string {
	styles := m.theme.Styles()
	width := clamp(m.width-8, 30, 72)

	var b strings.Builder
	b.WriteString(styles.DangerText.Render("adindex could not start"))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Width(width).Render(styles.Text.Render(errorText(m.fatal))))
	b.WriteString("\n\n")
	if apperr.Is(m.fatal, apperr.TypeSession) {
		b.WriteString(styles.MutedText.Render("The server could not confirm or issue a session."))
		b.WriteString("\n")
	}
	if m.apiURL != "" {
		b.WriteString(styles.FaintText.Render("api   ") + styles.MutedText.Render(truncateMiddle(m.apiURL, width-6)))
		b.WriteString("\n")
	}
	if m.logPath != "" {
		b.WriteString(styles.FaintText.Render("logs  ") + styles.MutedText.Render(truncateMiddle(m.logPath, width-6)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.AccentText.Render("q") + styles.MutedText.Render(" quit"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Danger)).
		Padding(1, 2).
		Render(b.String())

	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
