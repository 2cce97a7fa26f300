package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"pkt.systems/pslog"

	"github.com/five82/adindex/internal/adindex"
	"github.com/five82/adindex/internal/logging"
	"github.com/five82/adindex/internal/nav"
	"github.com/five82/adindex/internal/state"
)

// surface renders one mounted view state.
type surface interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (surface, tea.Cmd)
	View(f frame) string
	// Layout applies the body size and theme.
	Layout(width, height int, theme Theme) surface
	Commands() []command
	// CapturesInput reports whether printable keys belong to the surface.
	CapturesInput() bool
}

type command struct{ key, desc string }

// frame is the per-render data every surface may draw from.
type frame struct {
	theme    Theme
	styles   Styles
	width    int
	height   int
	snapshot state.Snapshot
	now      time.Time
}

// deps are the collaborators shared by all surfaces.
type deps struct {
	ctx     context.Context
	client  adindex.API
	session adindex.Session
	store   *state.Store
	keys    keyMap
}

// surfaceMsg carries a surface's message together with the instance that
// produced it.
type surfaceMsg struct {
	instance uint64
	msg      tea.Msg
}

// navigateMsg asks the root to dispatch a navigation event.
type navigateMsg struct{ event nav.Event }

func navigate(ev nav.Event) tea.Cmd {
	return func() tea.Msg { return navigateMsg{event: ev} }
}

// surfaceHost builds and tears down surfaces for the navigation controller.
type surfaceHost struct {
	deps    deps
	log     pslog.Logger
	active  nav.Mounted
	current surface
	width   int
	height  int
	theme   Theme
	pending []tea.Cmd
}

var _ nav.Mounter = (*surfaceHost)(nil)

// Mount implements nav.Mounter.
func (h *surfaceHost) Mount(m nav.Mounted) {
	h.active = m
	h.current = h.build(m).Layout(h.width, h.height, h.theme)
	if cmd := h.current.Init(); cmd != nil {
		h.pending = append(h.pending, tagCmd(m.Instance, cmd))
	}
}

// Unmount implements nav.Mounter.
func (h *surfaceHost) Unmount(m nav.Mounted) {
	if h.active.Instance != m.Instance {
		return
	}
	logging.WithView(h.log, m.Path(), m.Instance).Debug("surface unmounted")
	h.current = nil
	h.active = nav.Mounted{}
}

// drain returns the init commands queued by mounts.
func (h *surfaceHost) drain() tea.Cmd {
	cmds := h.pending
	h.pending = nil
	return tea.Batch(cmds...)
}

func (h *surfaceHost) update(msg tea.Msg) tea.Cmd {
	if h.current == nil {
		return nil
	}
	var cmd tea.Cmd
	h.current, cmd = h.current.Update(msg)
	return tagCmd(h.active.Instance, cmd)
}

func (h *surfaceHost) layout(width, height int, theme Theme) {
	h.width, h.height, h.theme = width, height, theme
	if h.current != nil {
		h.current = h.current.Layout(width, height, theme)
	}
}

func (h *surfaceHost) build(m nav.Mounted) surface {
	log := logging.WithView(h.log, m.Path(), m.Instance)
	d := h.deps
	d.ctx = logging.ContextWithLogger(d.ctx, log)
	switch m.View.Kind {
	case nav.KindQueryEditor:
		return newQueryEditor(d, m.View)
	case nav.KindAdList:
		return newAdList(d, m.View.QueryID)
	default:
		return newQueryList(d)
	}
}

// tagCmd wraps the messages produced by cmd with instance.
func tagCmd(instance uint64, cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	return func() tea.Msg {
		return tagMsg(instance, cmd())
	}
}

func tagMsg(instance uint64, msg tea.Msg) tea.Msg {
	switch msg := msg.(type) {
	case nil:
		return nil
	case tea.BatchMsg:
		out := make(tea.BatchMsg, 0, len(msg))
		for _, cmd := range msg {
			out = append(out, tagCmd(instance, cmd))
		}
		return out
	case surfaceMsg:
		return msg
	}
	return surfaceMsg{instance: instance, msg: msg}
}
