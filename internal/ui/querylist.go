package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/adindex/internal/adindex"
	"github.com/five82/adindex/internal/apperr"
	"github.com/five82/adindex/internal/logging"
	"github.com/five82/adindex/internal/nav"
)

type queriesLoadedMsg struct {
	queries []adindex.AdQuery
	err     error
}

type queryDeletedMsg struct {
	id  string
	ok  bool
	err error
}

type queryClearedMsg struct {
	id  string
	ok  bool
	err error
}

type querySubToggledMsg struct {
	id         string
	subscribed bool
	ok         bool
	err        error
}

// queryList shows the session's saved queries.
type queryList struct {
	deps     deps
	queries  []adindex.AdQuery
	selected int
	loading  bool
	notice   string
	err      error
	confirm  Modal
	width    int
	height   int
	theme    Theme
}

func newQueryList(d deps) *queryList {
	return &queryList{deps: d, loading: true}
}

func (l *queryList) Init() tea.Cmd {
	return l.load()
}

func (l *queryList) Layout(width, height int, theme Theme) surface {
	l.width, l.height, l.theme = width, height, theme
	return l
}

func (l *queryList) CapturesInput() bool {
	return l.confirm != nil
}

func (l *queryList) Commands() []command {
	if l.confirm != nil {
		return []command{{"y", "Confirm"}, {"n", "Keep"}}
	}
	return []command{
		{"a", "Add"},
		{"e", "Edit"},
		{"v", "Ads"},
		{"s", "Alerts"},
		{"c", "Clear"},
		{"d", "Delete"},
		{"r", "Reload"},
	}
}

func (l *queryList) Update(msg tea.Msg) (surface, tea.Cmd) {
	switch msg := msg.(type) {
	case queriesLoadedMsg:
		l.loading = false
		l.err = msg.err
		if msg.err == nil {
			l.queries = msg.queries
			l.selected = clamp(l.selected, 0, len(l.queries)-1)
			l.watch()
		}
		return l, nil

	case queryDeletedMsg:
		if err := actionErr("delete_ad_query", msg.ok, msg.err); err != nil {
			l.err = err
			return l, nil
		}
		l.removeQuery(msg.id)
		l.deps.store.Forget(msg.id)
		l.watch()
		l.notice = "Query deleted"
		return l, nil

	case queryClearedMsg:
		if err := actionErr("clear_ad_query", msg.ok, msg.err); err != nil {
			l.err = err
			return l, nil
		}
		l.notice = "Results cleared"
		return l, nil

	case querySubToggledMsg:
		if err := actionErr("toggle_ad_query_sub", msg.ok, msg.err); err != nil {
			l.err = err
			return l, nil
		}
		for i := range l.queries {
			if l.queries[i].ID == msg.id {
				l.queries[i].Subscribed = msg.subscribed
			}
		}
		return l, nil

	case tea.KeyMsg:
		return l.handleKey(msg)
	}
	return l, nil
}

func (l *queryList) handleKey(msg tea.KeyMsg) (surface, tea.Cmd) {
	keys := l.deps.keys
	if l.confirm != nil {
		next, cmd, done := l.confirm.Update(msg, keys)
		if done {
			l.confirm = nil
		} else {
			l.confirm = next
		}
		return l, cmd
	}

	switch {
	case key.Matches(msg, keys.Down):
		l.selected = clamp(l.selected+1, 0, len(l.queries)-1)
	case key.Matches(msg, keys.Up):
		l.selected = clamp(l.selected-1, 0, len(l.queries)-1)
	case key.Matches(msg, keys.Top):
		l.selected = 0
	case key.Matches(msg, keys.Bottom):
		l.selected = clamp(len(l.queries)-1, 0, len(l.queries)-1)
	case key.Matches(msg, keys.Add):
		return l, navigate(nav.Add())
	case key.Matches(msg, keys.Reload):
		l.loading = true
		l.err, l.notice = nil, ""
		return l, l.load()
	}

	q, ok := l.current()
	if !ok {
		return l, nil
	}
	switch {
	case key.Matches(msg, keys.Edit):
		return l, navigate(nav.Edit(q.ID))
	case key.Matches(msg, keys.View):
		return l, navigate(nav.View(q.ID))
	case key.Matches(msg, keys.Delete):
		l.confirm = newConfirm(fmt.Sprintf("Delete %q and its results?", q.Nickname), l.deleteQuery(q.ID))
	case key.Matches(msg, keys.Clear):
		l.confirm = newConfirm(fmt.Sprintf("Clear cached results of %q?", q.Nickname), l.clearQuery(q.ID))
	case key.Matches(msg, keys.Subscribe):
		l.err, l.notice = nil, ""
		return l, l.toggleSub(q.ID, !q.Subscribed)
	}
	return l, nil
}

func (l *queryList) View(f frame) string {
	styles := f.styles.WithBackground(f.theme.SurfaceAlt)
	var b strings.Builder

	switch {
	case l.loading && len(l.queries) == 0:
		b.WriteString(styles.MutedText.Render("Loading queries..."))
	case len(l.queries) == 0 && l.err == nil:
		b.WriteString(styles.MutedText.Render("No saved queries. Press a to add one."))
	default:
		l.renderRows(&b, f, styles)
	}

	if l.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.DangerText.Render(errorText(l.err)))
	} else if l.notice != "" {
		b.WriteString("\n")
		b.WriteString(styles.SuccessText.Render(l.notice))
	}
	if l.confirm != nil {
		b.WriteString("\n")
		b.WriteString(l.confirm.View(styles, f.width))
	}

	title := fmt.Sprintf("Queries (%d)", len(l.queries))
	return titledBox(f.theme, title, b.String(), f.width, f.height, true)
}

func (l *queryList) renderRows(b *strings.Builder, f frame, styles Styles) {
	inner := f.width - 4
	nameWidth := 18
	showStatus := f.width >= LayoutStatusWidth

	for i, q := range l.queries {
		marker := "  "
		if i == l.selected {
			marker = "› "
		}
		alert := styles.FaintText.Render("○")
		if q.Subscribed {
			alert = lipglossFg(f.styles.StateColor(stateSubscribed)).Render("●")
		}
		row := marker + alert + " " + padRight(truncate(q.Nickname, nameWidth), nameWidth) + "  "

		rest := q.Query
		if len(q.Filters) > 0 {
			rest += "  [" + q.FilterSummary() + "]"
		}
		status := ""
		if showStatus {
			status = l.statusCell(f, q.ID)
		}
		restWidth := inner - lipgloss.Width(row) - lipgloss.Width(status) - 2
		if restWidth < 8 {
			restWidth = 8
		}
		row += padRight(truncate(rest, restWidth), restWidth)
		if status != "" {
			row += "  " + status
		}

		if i == l.selected {
			b.WriteString(styles.Selected.Width(inner).Render(row))
		} else {
			b.WriteString(styles.Text.Render(row))
		}
		b.WriteString("\n")
	}
}

func (l *queryList) statusCell(f frame, id string) string {
	st, ok := f.snapshot.Status(id)
	if !ok {
		return padRight("", 24)
	}
	if st.HasError() {
		return padRight("pull error", 24)
	}
	return padRight(fmt.Sprintf("%d ads · %s", st.ResultCount, humanizeAge(f.now, st.LastPullAt())), 24)
}

func (l *queryList) current() (adindex.AdQuery, bool) {
	if l.selected < 0 || l.selected >= len(l.queries) {
		return adindex.AdQuery{}, false
	}
	return l.queries[l.selected], true
}

func (l *queryList) removeQuery(id string) {
	out := l.queries[:0]
	for _, q := range l.queries {
		if q.ID != id {
			out = append(out, q)
		}
	}
	l.queries = out
	l.selected = clamp(l.selected, 0, len(l.queries)-1)
}

func (l *queryList) watch() {
	ids := make([]string, 0, len(l.queries))
	for _, q := range l.queries {
		ids = append(ids, q.ID)
	}
	l.deps.store.Watch(ids)
}

func (l *queryList) load() tea.Cmd {
	ctx, client, sid := l.deps.ctx, l.deps.client, l.deps.session.SessionID
	return func() tea.Msg {
		queries, err := client.AdQueries(ctx, sid)
		if err != nil {
			logging.Ctx(ctx).Warn("load queries failed", "error", err)
		}
		return queriesLoadedMsg{queries: queries, err: err}
	}
}

func (l *queryList) deleteQuery(id string) tea.Cmd {
	ctx, client := l.deps.ctx, l.deps.client
	return func() tea.Msg {
		ok, err := client.DeleteAdQuery(ctx, id)
		return queryDeletedMsg{id: id, ok: ok, err: err}
	}
}

func (l *queryList) clearQuery(id string) tea.Cmd {
	ctx, client := l.deps.ctx, l.deps.client
	return func() tea.Msg {
		ok, err := client.ClearAdQuery(ctx, id)
		return queryClearedMsg{id: id, ok: ok, err: err}
	}
}

func (l *queryList) toggleSub(id string, subscribed bool) tea.Cmd {
	ctx, client, sid := l.deps.ctx, l.deps.client, l.deps.session.SessionID
	return func() tea.Msg {
		ok, err := client.ToggleAdQuerySub(ctx, sid, id, subscribed)
		return querySubToggledMsg{id: id, subscribed: subscribed, ok: ok, err: err}
	}
}

// actionErr turns a false acknowledgment into a network error.
func actionErr(op string, ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NetworkMessage(op, "query not found")
	}
	return nil
}
