package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/adindex/internal/apperr"
	"github.com/five82/adindex/internal/logging"
	"github.com/five82/adindex/internal/pushsync"
)

// renderHeader renders the status bar: session, API health and the
// notification toggle.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("adindex", styles.Logo)}
	if !compact {
		parts = append(parts, bg.Render("session", styles.FaintText)+bg.Spaces(1)+
			bg.Render(logging.Redact(m.session.SessionID), styles.MutedText))
	}
	parts = append(parts, m.apiHealth(styles, bg), m.notifyBadge(styles, bg))
	if sync := m.syncHealth(styles, bg, compact); sync != "" {
		parts = append(parts, sync)
	}
	if !compact {
		parts = append(parts, bg.Render("#"+m.nav.Active().Path(), styles.AccentText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

func (m Model) apiHealth(styles Styles, bg BgStyle) string {
	snap := m.snapshot
	switch {
	case snap.IsOffline():
		return bg.Render("● API offline", styles.DangerText)
	case snap.LastError != nil:
		return bg.Render("● API retrying", styles.WarningText)
	case snap.LastUpdated.IsZero():
		return bg.Render("● API", styles.MutedText)
	default:
		return bg.Render("● API", styles.SuccessText)
	}
}

// notifyBadge renders the tri-state notification toggle.
func (m Model) notifyBadge(styles Styles, bg BgStyle) string {
	st := m.sync.Status()
	label, state := "notify ?", stateUnknown
	switch st.Intent {
	case pushsync.IntentEnabled:
		label, state = "notify on", stateEnabled
	case pushsync.IntentDisabled:
		label, state = "notify off", stateDisabled
	}
	badge := styles.Badge(state).Render(label)
	if st.Pending {
		badge += bg.Spaces(1) + bg.Render(m.spinner.View(), lipglossFg(styles.StateColor(statePending)))
	}
	return badge
}

func (m Model) syncHealth(styles Styles, bg BgStyle, compact bool) string {
	st := m.sync.Status()
	switch st.Health {
	case pushsync.HealthDegraded:
		return bg.Render("sync degraded", lipglossFg(styles.StateColor(stateDegraded)))
	case pushsync.HealthOK:
		if compact {
			return bg.Render("sync ok", lipglossFg(styles.StateColor(stateOK)))
		}
		return bg.Render("synced "+humanizeAge(m.now, st.LastSync), lipglossFg(styles.StateColor(stateOK)))
	}
	return ""
}

// renderCommandBar renders the key hints of the mounted surface followed by
// the global ones.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	var commands []command
	if cur := m.host.current; cur != nil {
		commands = append(commands, cur.Commands()...)
	}
	commands = append(commands,
		command{"[/]", "Back/Fwd"},
		command{"n", "Notify"},
		command{"?", "More"},
	)

	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments, bg.Pair(c.key, c.desc, styles.AccentText, styles.MutedText))
	}
	segments = append(segments, bg.Pair("T", m.theme.Name, styles.AccentText, styles.FaintText))

	return styles.Header.Width(m.width).Render(bg.Join(segments, "  "))
}

// renderAlert renders the global alert line, blank when there is none.
func (m Model) renderAlert() string {
	if m.alert == nil {
		return ""
	}
	styles := m.theme.Styles()
	text := "✖ " + errorText(m.alert)
	return styles.DangerText.Render(truncate(text, m.width-16)) + "  " + styles.FaintText.Render("x dismiss")
}

// errorText renders err for a user: the apperr message when there is one,
// the innermost cause otherwise.
func errorText(err error) string {
	if err == nil {
		return ""
	}
	var e *apperr.Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return capitalize(e.Message)
		}
		if e.Cause != nil {
			return capitalize(e.Op) + " failed: " + e.Cause.Error()
		}
	}
	return capitalize(err.Error())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func lipglossFg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}
