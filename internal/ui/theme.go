package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines colors and styles for the UI.
type Theme struct {
	Name string

	// Base colors
	Background string // Outermost background
	Surface    string // Header and command bar
	SurfaceAlt string // View panels
	FocusBg    string // Focused panel

	// List selection
	SelectionBg   string
	SelectionText string

	// Borders
	Border      string
	BorderMuted string
	BorderFocus string

	// Text colors
	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// StateColors maps badge states (intent, sync health, query status) to colors.
	StateColors map[string]string
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Background: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Background)),

		Surface: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)),

		SurfaceAlt: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SurfaceAlt)).
			Foreground(lipgloss.Color(t.Text)),

		Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		MutedText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		FaintText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
		AccentText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		SuccessText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)).Bold(true),
		WarningText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		DangerText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Danger)).Bold(true),
		InfoText:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Info)),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),

		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)).
			Bold(true),

		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SelectionBg)).
			Foreground(lipgloss.Color(t.SelectionText)),

		stateColors: t.StateColors,
		background:  t.Background,
		muted:       t.Muted,
	}
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	Background lipgloss.Style
	Surface    lipgloss.Style
	SurfaceAlt lipgloss.Style

	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Header   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style

	stateColors map[string]string
	background  string
	muted       string
}

// StateColor returns the color for a badge state, falling back to muted.
func (s Styles) StateColor(state string) string {
	if color := s.stateColors[state]; color != "" {
		return color
	}
	return s.muted
}

// Badge returns a filled badge style for the given state.
func (s Styles) Badge(state string) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(s.StateColor(state))).
		Padding(0, 1)
}

// WithBackground returns a copy of Styles with all text styles having the
// specified background.
func (s Styles) WithBackground(bgColor string) Styles {
	bg := lipgloss.Color(bgColor)
	out := s
	out.Background = s.Background.Background(bg)
	out.Surface = s.Surface.Background(bg)
	out.SurfaceAlt = s.SurfaceAlt.Background(bg)
	out.Text = s.Text.Background(bg)
	out.MutedText = s.MutedText.Background(bg)
	out.FaintText = s.FaintText.Background(bg)
	out.AccentText = s.AccentText.Background(bg)
	out.SuccessText = s.SuccessText.Background(bg)
	out.WarningText = s.WarningText.Background(bg)
	out.DangerText = s.DangerText.Background(bg)
	out.InfoText = s.InfoText.Background(bg)
	out.Header = s.Header.Background(bg)
	out.Logo = s.Logo.Background(bg)
	out.Selected = s.Selected.Background(bg)
	return out
}

// Badge states.
const (
	stateEnabled    = "enabled"
	stateDisabled   = "disabled"
	stateUnknown    = "unknown"
	statePending    = "pending"
	stateOK         = "ok"
	stateDegraded   = "degraded"
	stateError      = "error"
	stateSubscribed = "subscribed"
)

var themes = map[string]Theme{
	"Nightfox": nightfoxTheme(),
	"Slate":    slateTheme(),
}

var themeOrder = []string{"Nightfox", "Slate"}

// GetTheme returns a theme by name.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return nightfoxTheme()
}

// NextTheme returns the next theme name in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns available theme names.
func ThemeNames() []string {
	return themeOrder
}

func nightfoxTheme() Theme {
	// https://github.com/EdenEast/nightfox.nvim
	return Theme{
		Name: "Nightfox",

		Background: "#131a24",
		Surface:    "#192330",
		SurfaceAlt: "#212e3f",
		FocusBg:    "#29394f",

		SelectionBg:   "#2b3b51",
		SelectionText: "#cdcecf",

		Border:      "#39506d",
		BorderMuted: "#212e3f",
		BorderFocus: "#719cd6",

		Text:    "#cdcecf",
		Muted:   "#738091",
		Faint:   "#71839b",
		Accent:  "#719cd6",
		Success: "#81b29a",
		Warning: "#dbc074",
		Danger:  "#c94f6d",
		Info:    "#63cdcf",

		StateColors: map[string]string{
			stateEnabled:    "#81b29a", // green
			stateDisabled:   "#738091", // comment
			stateUnknown:    "#71839b", // fg3
			statePending:    "#63cdcf", // cyan
			stateOK:         "#81b29a", // green
			stateDegraded:   "#dbc074", // yellow
			stateError:      "#c94f6d", // red
			stateSubscribed: "#9d79d6", // magenta
		},
	}
}

func slateTheme() Theme {
	// Tailwind CSS slate/sky palette
	return Theme{
		Name: "Slate",

		Background: "#020617",
		Surface:    "#0f172a",
		SurfaceAlt: "#1e293b",
		FocusBg:    "#283548",

		SelectionBg:   "#0284c7",
		SelectionText: "#f8fafc",

		Border:      "#334155",
		BorderMuted: "#1e293b",
		BorderFocus: "#38bdf8",

		Text:    "#f1f5f9",
		Muted:   "#94a3b8",
		Faint:   "#64748b",
		Accent:  "#38bdf8",
		Success: "#22c55e",
		Warning: "#f59e0b",
		Danger:  "#ef4444",
		Info:    "#06b6d4",

		StateColors: map[string]string{
			stateEnabled:    "#16a34a", // green-600
			stateDisabled:   "#64748b", // slate-500
			stateUnknown:    "#475569", // slate-600
			statePending:    "#38bdf8", // sky-400
			stateOK:         "#22c55e", // green-500
			stateDegraded:   "#f59e0b", // amber-500
			stateError:      "#dc2626", // red-600
			stateSubscribed: "#06b6d4", // cyan-500
		},
	}
}
