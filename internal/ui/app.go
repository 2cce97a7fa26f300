package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"pkt.systems/pslog"

	"github.com/five82/adindex/internal/adindex"
	"github.com/five82/adindex/internal/localstore"
	"github.com/five82/adindex/internal/logging"
	"github.com/five82/adindex/internal/nav"
	"github.com/five82/adindex/internal/pushsync"
	"github.com/five82/adindex/internal/state"
)

// Prefs persists UI preferences.
type Prefs interface {
	Set(key, value string) error
}

// Options configures the UI.
type Options struct {
	Context     context.Context
	Client      adindex.API
	Session     adindex.Session
	Sync        *pushsync.Synchronizer
	Store       *state.Store
	Prefs       Prefs
	InitialPath string
	ThemeName   string
	PollTick    time.Duration
	APIURL      string
	LogPath     string
	// Fatal, when set, replaces the whole UI with the error page.
	Fatal error
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx      context.Context
	log      pslog.Logger
	session  adindex.Session
	sync     *pushsync.Synchronizer
	store    *state.Store
	prefs    Prefs
	pollTick time.Duration
	apiURL   string
	logPath  string

	// Navigation
	nav  *nav.Controller
	host *surfaceHost

	// UI state
	keys     keyMap
	theme    Theme
	spinner  spinner.Model
	spinning bool
	width    int
	height   int
	ready    bool
	showHelp bool

	// Data state
	snapshot state.Snapshot
	now      time.Time

	alert error
	fatal error
}

// New creates the root model and mounts the view for opts.InitialPath.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	log := logging.Ctx(ctx).With("component", "ui")

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}
	store := opts.Store
	if store == nil {
		store = &state.Store{}
	}

	m := Model{
		ctx:      ctx,
		log:      log,
		session:  opts.Session,
		sync:     opts.Sync,
		store:    store,
		prefs:    opts.Prefs,
		pollTick: pollTick,
		apiURL:   opts.APIURL,
		logPath:  opts.LogPath,
		keys:     DefaultKeyMap(),
		theme:    GetTheme(opts.ThemeName),
		spinner:  spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		now:      time.Now(),
		fatal:    opts.Fatal,
	}
	if m.fatal != nil {
		return m
	}

	m.host = &surfaceHost{
		deps: deps{
			ctx:     ctx,
			client:  opts.Client,
			session: opts.Session,
			store:   store,
			keys:    m.keys,
		},
		log:   log,
		theme: m.theme,
	}
	m.nav = nav.NewController(m.host, log)
	m.nav.Start(opts.InitialPath)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.fatal != nil {
		return nil
	}
	return tea.Batch(
		m.host.drain(),
		tickCmd(m.pollTick),
		fetchSnapshotCmd(m.store),
		m.runSync(m.sync.Refresh()),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		if m.host != nil {
			m.host.layout(m.width, m.bodyHeight(), m.theme)
		}
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		return m, tea.Batch(fetchSnapshotCmd(m.store), tickCmd(m.pollTick))

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		return m, nil

	case syncResultMsg:
		return m.handleSyncResult(pushsync.Result(msg))

	case spinner.TickMsg:
		if !m.sync.Status().Pending {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case surfaceMsg:
		return m.handleSurfaceMsg(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.fatal != nil {
		return m.renderFatal()
	}
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.fatal != nil {
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	// Keys that work even while typing.
	switch msg.String() {
	case "alt+left":
		return m.back()
	case "alt+right":
		return m.forward()
	}
	if m.host.current != nil && m.host.current.CapturesInput() {
		return m, m.host.update(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.cycleTheme()
		return m, nil
	case key.Matches(msg, m.keys.Notifications):
		return m.toggleNotifications()
	case key.Matches(msg, m.keys.Back):
		return m.back()
	case key.Matches(msg, m.keys.Forward):
		return m.forward()
	case key.Matches(msg, m.keys.Dismiss) && m.alert != nil:
		m.alert = nil
		return m, nil
	}
	return m, m.host.update(msg)
}

func (m Model) handleSurfaceMsg(msg surfaceMsg) (tea.Model, tea.Cmd) {
	if !m.nav.IsActive(msg.instance) {
		m.log.Debug("dropping stale view result", "instance", msg.instance, "active", m.nav.Active().Instance)
		return m, nil
	}
	switch inner := msg.msg.(type) {
	case navigateMsg:
		if _, ok := m.nav.Dispatch(inner.event); !ok {
			return m, nil
		}
		return m, m.host.drain()
	}
	return m, m.host.update(msg.msg)
}

func (m Model) back() (tea.Model, tea.Cmd) {
	if _, ok := m.nav.Back(); !ok {
		return m, nil
	}
	return m, m.host.drain()
}

func (m Model) forward() (tea.Model, tea.Cmd) {
	if _, ok := m.nav.Forward(); !ok {
		return m, nil
	}
	return m, m.host.drain()
}

func (m Model) toggleNotifications() (tea.Model, tea.Cmd) {
	enable := m.sync.Status().Intent != pushsync.IntentEnabled
	op := m.sync.Toggle(enable)
	m.alert = nil
	cmds := []tea.Cmd{m.runSync(op)}
	if !m.spinning {
		m.spinning = true
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleSyncResult(res pushsync.Result) (tea.Model, tea.Cmd) {
	applied := m.sync.Complete(res)
	if applied && res.Kind != pushsync.KindSync && res.Err != nil {
		m.alert = res.Err
	}
	return m, nil
}

func (m *Model) cycleTheme() {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	m.host.layout(m.width, m.bodyHeight(), m.theme)
	if m.prefs == nil {
		return
	}
	if err := m.prefs.Set(localstore.KeyTheme, m.theme.Name); err != nil {
		m.log.Warn("save theme preference failed", "theme", m.theme.Name, "error", err)
	}
}

func (m Model) runSync(op pushsync.Op) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return syncResultMsg(op.Run(ctx))
	}
}

func (m Model) bodyHeight() int {
	return maxInt(m.height-chromeRows, 3)
}

func (m Model) frame() frame {
	return frame{
		theme:    m.theme,
		styles:   m.theme.Styles(),
		width:    m.width,
		height:   m.bodyHeight(),
		snapshot: m.snapshot,
		now:      m.now,
	}
}

// renderMain renders header, command bar, the mounted view and the alert
// line.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	if cur := m.host.current; cur != nil {
		b.WriteString(cur.View(m.frame()))
	}
	b.WriteString("\n")
	b.WriteString(m.renderAlert())
	return b.String()
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type syncResultMsg pushsync.Result

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(opts Options) error {
	m := New(opts)
	ctx := m.ctx
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
