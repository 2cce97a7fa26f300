package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/adindex/internal/adindex"
	"github.com/five82/adindex/internal/logging"
	"github.com/five82/adindex/internal/nav"
)

type adsLoadedMsg struct {
	query adindex.AdQuery
	ads   []adindex.AdContent
	err   error
}

// adList shows the matched content of one query.
type adList struct {
	deps     deps
	queryID  string
	query    adindex.AdQuery
	ads      []adindex.AdContent
	viewport viewport.Model
	loading  bool
	err      error
	width    int
	theme    Theme
}

func newAdList(d deps, queryID string) *adList {
	return &adList{
		deps:     d,
		queryID:  queryID,
		loading:  true,
		viewport: viewport.New(0, 0),
	}
}

func (a *adList) Init() tea.Cmd {
	a.deps.store.Watch([]string{a.queryID})
	return a.load()
}

func (a *adList) Layout(width, height int, theme Theme) surface {
	a.width, a.theme = width, theme
	a.viewport.Width = maxInt(width-2, 1)
	a.viewport.Height = maxInt(height-4, 1)
	a.refreshContent()
	return a
}

func (a *adList) CapturesInput() bool { return false }

func (a *adList) Commands() []command {
	return []command{
		{"j/k", "Scroll"},
		{"e", "Edit"},
		{"h", "Queries"},
		{"r", "Reload"},
	}
}

func (a *adList) Update(msg tea.Msg) (surface, tea.Cmd) {
	switch msg := msg.(type) {
	case adsLoadedMsg:
		a.loading = false
		a.err = msg.err
		if msg.err == nil {
			a.query = msg.query
			a.ads = msg.ads
		}
		a.refreshContent()
		return a, nil

	case tea.KeyMsg:
		keys := a.deps.keys
		switch {
		case key.Matches(msg, keys.Edit):
			return a, navigate(nav.Edit(a.queryID))
		case key.Matches(msg, keys.Home):
			return a, navigate(nav.Home())
		case key.Matches(msg, keys.Cancel):
			return a, navigate(nav.Cancel())
		case key.Matches(msg, keys.Reload):
			a.loading = true
			return a, a.load()
		case key.Matches(msg, keys.Top):
			a.viewport.GotoTop()
			return a, nil
		case key.Matches(msg, keys.Bottom):
			a.viewport.GotoBottom()
			return a, nil
		}
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *adList) load() tea.Cmd {
	ctx, client, sid, id := a.deps.ctx, a.deps.client, a.deps.session.SessionID, a.queryID
	return func() tea.Msg {
		q, err := client.AdQuery(ctx, sid, id)
		if err != nil {
			return adsLoadedMsg{err: err}
		}
		ads, err := client.AdContent(ctx, id)
		if err != nil {
			logging.WithQuery(logging.Ctx(ctx), id).Warn("load ads failed", "error", err)
		}
		return adsLoadedMsg{query: q, ads: ads, err: err}
	}
}

func (a *adList) refreshContent() {
	if a.width == 0 {
		return
	}
	a.viewport.SetContent(a.renderAds())
}

func (a *adList) renderAds() string {
	styles := a.theme.Styles().WithBackground(a.theme.SurfaceAlt)
	width := maxInt(a.width-4, 10)
	if len(a.ads) == 0 {
		if a.loading || a.err != nil {
			return ""
		}
		return styles.MutedText.Render("No ads matched this query yet.")
	}

	body := lipgloss.NewStyle().Width(width)
	var b strings.Builder
	for i, ad := range a.ads {
		if i > 0 {
			b.WriteString(styles.FaintText.Render(strings.Repeat("─", width)))
			b.WriteString("\n")
		}
		name := ad.AccountName
		if name == "" {
			name = "Unknown account"
		}
		b.WriteString(styles.AccentText.Bold(true).Render(truncate(name, width)))
		b.WriteString("\n")
		if ad.AccountURL != "" {
			b.WriteString(styles.FaintText.Render(truncateMiddle(ad.AccountURL, width)))
			b.WriteString("\n")
		}
		b.WriteString(styles.MutedText.Render(adDates(ad)))
		b.WriteString("\n")
		if text := strings.TrimSpace(ad.Text); text != "" {
			b.WriteString(body.Render(text))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func adDates(ad adindex.AdContent) string {
	var parts []string
	if t := ad.StartedAt(); !t.IsZero() {
		parts = append(parts, "started "+t.Format("2006-01-02"))
	}
	if t := ad.LastSeenAt(); !t.IsZero() {
		parts = append(parts, "last seen "+t.Format("2006-01-02 15:04"))
	}
	if len(parts) == 0 {
		return "no dates"
	}
	return strings.Join(parts, " · ")
}

func (a *adList) View(f frame) string {
	styles := f.styles.WithBackground(f.theme.SurfaceAlt)

	var head string
	switch {
	case a.loading:
		head = styles.MutedText.Render("Loading ads...")
	case a.err != nil:
		head = styles.DangerText.Render(errorText(a.err))
	default:
		head = a.statusLine(f, styles)
	}

	title := "Ads"
	if a.query.Nickname != "" {
		title = fmt.Sprintf("Ads · %s (%d)", a.query.Nickname, len(a.ads))
	}
	return titledBox(f.theme, title, head+"\n\n"+a.viewport.View(), f.width, f.height, true)
}

func (a *adList) statusLine(f frame, styles Styles) string {
	parts := []string{styles.Text.Render(a.query.Query)}
	st, ok := f.snapshot.Status(a.queryID)
	if ok {
		if st.HasError() {
			parts = append(parts, styles.DangerText.Render("pull error: "+st.PullError))
		} else {
			parts = append(parts, styles.MutedText.Render("pulled "+humanizeAge(f.now, st.LastPullAt())))
		}
		parts = append(parts, styles.MutedText.Render("notified "+humanizeAge(f.now, st.LastNotifyAt())))
	}
	if a.query.Subscribed {
		parts = append(parts, lipglossFg(f.styles.StateColor(stateSubscribed)).Render("● alerts on"))
	}
	return strings.Join(parts, styles.FaintText.Render("  ·  "))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
