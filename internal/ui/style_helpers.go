package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BgStyle renders segments of a bar on one background color. Lipgloss
// resets between styled segments leave unpainted gaps, so every word and
// every separator is painted explicitly.
type BgStyle struct {
	bg   lipgloss.Color
	fill lipgloss.Style
}

// NewBgStyle creates a background helper for bgColor.
func NewBgStyle(bgColor string) BgStyle {
	bg := lipgloss.Color(bgColor)
	return BgStyle{bg: bg, fill: lipgloss.NewStyle().Background(bg)}
}

// Render paints text with style, spaces included.
func (b BgStyle) Render(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}
	wordStyle := style.Background(b.bg)
	if !strings.Contains(text, " ") {
		return wordStyle.Render(text)
	}
	words := strings.Split(text, " ")
	for i, w := range words {
		if w != "" {
			words[i] = wordStyle.Render(w)
		}
	}
	return strings.Join(words, b.fill.Render(" "))
}

// Spaces returns n painted spaces.
func (b BgStyle) Spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return b.fill.Render(strings.Repeat(" ", n))
}

// Join joins parts with a painted separator.
func (b BgStyle) Join(parts []string, sep string) string {
	return strings.Join(parts, b.fill.Render(sep))
}

// Pair renders "key:value" as used by the command bar.
func (b BgStyle) Pair(key, value string, keyStyle, valueStyle lipgloss.Style) string {
	return b.Render(key, keyStyle) + b.fill.Render(":") + b.Render(value, valueStyle)
}

// FillLine pads rendered content to width with the background color.
func (b BgStyle) FillLine(content string, width int) string {
	return b.fill.Width(width).Render(content)
}

// titledBox draws a bordered panel with the title embedded in the top
// border. Content lines beyond the inner height are cut.
func titledBox(theme Theme, title, content string, width, height int, focused bool) string {
	borderColor, bgColor := theme.Border, theme.SurfaceAlt
	if focused {
		borderColor, bgColor = theme.BorderFocus, theme.FocusBg
	}
	if width < 4 {
		width = 4
	}
	if height < 2 {
		height = 2
	}
	bg := NewBgStyle(bgColor)
	border := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColor))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(theme.Text))

	inner := width - 2
	title = truncate(title, inner-4)
	titleWidth := lipgloss.Width(title) + 2
	left := (inner - titleWidth) / 2
	right := inner - titleWidth - left
	if left < 0 {
		left, right = 0, 0
	}

	var b strings.Builder
	b.WriteString(bg.Render("┌"+strings.Repeat("─", left), border))
	b.WriteString(bg.Render(" "+title+" ", titleStyle))
	b.WriteString(bg.Render(strings.Repeat("─", right)+"┐", border))
	b.WriteString("\n")

	body := lipgloss.NewStyle().Width(inner).MaxWidth(inner).Background(lipgloss.Color(bgColor))
	lines := strings.Split(content, "\n")
	for i := 0; i < height-2; i++ {
		var line string
		if i < len(lines) {
			line = lines[i]
		}
		b.WriteString(bg.Render("│", border))
		b.WriteString(body.Render(line))
		b.WriteString(bg.Render("│", border))
		b.WriteString("\n")
	}
	b.WriteString(bg.Render("└"+strings.Repeat("─", inner)+"┘", border))
	return b.String()
}
