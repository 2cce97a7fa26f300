package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/adindex/internal/adindex"
	"github.com/five82/adindex/internal/apperr"
	"github.com/five82/adindex/internal/logging"
	"github.com/five82/adindex/internal/nav"
)

const (
	fieldNickname = iota
	fieldQuery
	fieldFilters
	fieldSubscribed
	fieldCount
)

var fieldLabels = [...]string{"Nickname", "Query", "Filters", "Alerts"}

type editorLoadedMsg struct {
	query adindex.AdQuery
	err   error
}

type querySavedMsg struct {
	id  string
	err error
}

// queryEditor creates a query, or edits one when the view carries an id.
type queryEditor struct {
	deps       deps
	view       nav.ViewState
	inputs     [fieldSubscribed]textinput.Model
	subscribed bool
	focus      int
	loading    bool
	saving     bool
	err        error
	width      int
	theme      Theme
}

func newQueryEditor(d deps, view nav.ViewState) *queryEditor {
	e := &queryEditor{deps: d, view: view, loading: !view.IsCreate()}
	placeholders := [...]string{"Running shoes", "running shoes sale", "comma separated, optional"}
	for i := range e.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 256
		ti.Cursor.SetMode(cursor.CursorStatic)
		e.inputs[i] = ti
	}
	e.setFocus(fieldNickname)
	return e
}

func (e *queryEditor) Init() tea.Cmd {
	if e.view.IsCreate() {
		return nil
	}
	ctx, client, sid, id := e.deps.ctx, e.deps.client, e.deps.session.SessionID, e.view.QueryID
	return func() tea.Msg {
		q, err := client.AdQuery(ctx, sid, id)
		return editorLoadedMsg{query: q, err: err}
	}
}

func (e *queryEditor) Layout(width, height int, theme Theme) surface {
	e.width, e.theme = width, theme
	for i := range e.inputs {
		e.inputs[i].Width = clamp(width-20, 10, 80)
	}
	return e
}

func (e *queryEditor) CapturesInput() bool {
	return e.focus < fieldSubscribed
}

func (e *queryEditor) Commands() []command {
	return []command{
		{"tab", "Next"},
		{"space", "Alerts"},
		{"enter", "Save"},
		{"esc", "Cancel"},
	}
}

func (e *queryEditor) Update(msg tea.Msg) (surface, tea.Cmd) {
	switch msg := msg.(type) {
	case editorLoadedMsg:
		e.loading = false
		if msg.err != nil {
			e.err = msg.err
			return e, nil
		}
		e.inputs[fieldNickname].SetValue(msg.query.Nickname)
		e.inputs[fieldQuery].SetValue(msg.query.Query)
		e.inputs[fieldFilters].SetValue(strings.Join(msg.query.Filters, ", "))
		e.subscribed = msg.query.Subscribed
		return e, nil

	case querySavedMsg:
		e.saving = false
		if msg.err != nil {
			e.err = msg.err
			return e, nil
		}
		return e, navigate(nav.SaveComplete())

	case tea.KeyMsg:
		return e.handleKey(msg)
	}
	return e, nil
}

func (e *queryEditor) handleKey(msg tea.KeyMsg) (surface, tea.Cmd) {
	keys := e.deps.keys
	switch {
	case key.Matches(msg, keys.Cancel):
		return e, navigate(nav.Cancel())
	case e.saving || e.loading:
		return e, nil
	case key.Matches(msg, keys.Save):
		return e, e.save()
	case key.Matches(msg, keys.NextField):
		e.setFocus((e.focus + 1) % fieldCount)
		return e, nil
	case key.Matches(msg, keys.PrevField):
		e.setFocus((e.focus + fieldCount - 1) % fieldCount)
		return e, nil
	}

	if e.focus == fieldSubscribed {
		if key.Matches(msg, keys.ToggleSub) {
			e.subscribed = !e.subscribed
		}
		return e, nil
	}
	var cmd tea.Cmd
	e.inputs[e.focus], cmd = e.inputs[e.focus].Update(msg)
	return e, cmd
}

func (e *queryEditor) setFocus(field int) {
	e.focus = field
	for i := range e.inputs {
		if i == field {
			e.inputs[i].Focus()
		} else {
			e.inputs[i].Blur()
		}
	}
}

func (e *queryEditor) base() adindex.AdQueryBase {
	return adindex.AdQueryBase{
		Nickname: strings.TrimSpace(e.inputs[fieldNickname].Value()),
		Query:    strings.TrimSpace(e.inputs[fieldQuery].Value()),
		Filters:  splitFilters(e.inputs[fieldFilters].Value()),
	}
}

func (e *queryEditor) save() tea.Cmd {
	base := e.base()
	if err := adindex.ValidateQuery(base); err != nil {
		e.err = err
		return nil
	}
	e.err = nil
	e.saving = true

	ctx, client, sid := e.deps.ctx, e.deps.client, e.deps.session.SessionID
	subscribed := e.subscribed
	if e.view.IsCreate() {
		return func() tea.Msg {
			id, err := client.InsertAdQuery(ctx, sid, base, subscribed)
			if err == nil {
				logging.WithQuery(logging.Ctx(ctx), id).Info("query created")
			}
			return querySavedMsg{id: id, err: err}
		}
	}
	q := adindex.AdQuery{ID: e.view.QueryID, AdQueryBase: base, Subscribed: subscribed}
	return func() tea.Msg {
		res, err := client.UpdateAdQuery(ctx, sid, q)
		if err == nil && !res.UpdatedData {
			err = apperr.NetworkMessage("update_ad_query", "query not found")
		}
		if err == nil {
			logging.WithQuery(logging.Ctx(ctx), q.ID).Info("query updated", "subscription_updated", res.UpdatedSub)
		}
		return querySavedMsg{id: q.ID, err: err}
	}
}

func (e *queryEditor) View(f frame) string {
	styles := f.styles.WithBackground(f.theme.SurfaceAlt)
	label := styles.MutedText.Width(10)
	focusLabel := styles.AccentText.Bold(true).Width(10)

	var b strings.Builder
	if e.loading {
		b.WriteString(styles.MutedText.Render("Loading query..."))
		b.WriteString("\n\n")
	}
	for i := 0; i < fieldCount; i++ {
		l := label
		if i == e.focus {
			l = focusLabel
		}
		b.WriteString(l.Render(fieldLabels[i]))
		b.WriteString(" ")
		if i == fieldSubscribed {
			box := "[ ] notify me about new ads"
			if e.subscribed {
				box = "[x] notify me about new ads"
			}
			b.WriteString(styles.Text.Render(box))
		} else {
			b.WriteString(e.inputs[i].View())
		}
		b.WriteString("\n\n")
	}

	switch {
	case e.saving:
		b.WriteString(styles.InfoText.Render("Saving..."))
	case e.isValidation():
		b.WriteString(styles.WarningText.Render(errorText(e.err)))
	case e.err != nil:
		b.WriteString(styles.DangerText.Render(errorText(e.err)))
	}

	title := "New query"
	if !e.view.IsCreate() {
		title = "Edit query"
		if nick := strings.TrimSpace(e.inputs[fieldNickname].Value()); nick != "" && !e.loading {
			title += " · " + nick
		}
	}
	return titledBox(f.theme, title, b.String(), f.width, f.height, true)
}

// isValidation reports whether the editor is showing an input error.
func (e *queryEditor) isValidation() bool {
	return apperr.Is(e.err, apperr.TypeValidation)
}
