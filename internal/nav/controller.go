package nav

import (
	"pkt.systems/pslog"

	"github.com/five82/adindex/internal/logging"
)

// Mounted is the active state and the number of its mount.
type Mounted struct {
	View     ViewState
	Instance uint64
}

// Path returns the history path of the mounted state.
func (m Mounted) Path() string {
	return ViewToPath(m.View)
}

// Mounter builds and tears down render surfaces.
type Mounter interface {
	Mount(m Mounted)
	Unmount(m Mounted)
}

// Controller keeps exactly one state mounted.
type Controller struct {
	history  *History
	mounter  Mounter
	log      pslog.Logger
	active   Mounted
	sequence uint64
}

// NewController returns a controller that reports mounts to mounter, which
// may be nil.
func NewController(mounter Mounter, log pslog.Logger) *Controller {
	if log == nil {
		log = logging.Discard()
	}
	return &Controller{
		history: NewHistory(""),
		mounter: mounter,
		log:     log.With("component", "nav"),
	}
}

// Start mounts the state for the initial path. The initial path becomes the
// current history entry; nothing is pushed.
func (c *Controller) Start(path string) Mounted {
	view := PathToView(path)
	c.history = NewHistory(Hash(view))
	return c.mount(view)
}

// Active returns the mounted state.
func (c *Controller) Active() Mounted {
	return c.active
}

// IsActive reports whether instance is the current mount. Completions for
// any other instance must be dropped.
func (c *Controller) IsActive(instance uint64) bool {
	return instance != 0 && instance == c.active.Instance
}

// History exposes the back/forward stack.
func (c *Controller) History() *History {
	return c.history
}

// Dispatch applies ev. In-app events push a history entry; PopState does
// not. It reports false when ev did not apply to the active state.
func (c *Controller) Dispatch(ev Event) (Mounted, bool) {
	next, ok := Transition(c.active.View, ev)
	if !ok {
		c.log.Debug("navigation event ignored", "event", ev.Kind.String(), "state", c.active.View.String())
		return c.active, false
	}
	m := c.mount(next)
	if ev.Kind != EventPopState {
		c.history.Push(Hash(next))
	}
	return m, true
}

// Back replays the previous history entry.
func (c *Controller) Back() (Mounted, bool) {
	path, ok := c.history.Back()
	if !ok {
		return c.active, false
	}
	return c.Dispatch(PopState(path))
}

// Forward replays the next history entry.
func (c *Controller) Forward() (Mounted, bool) {
	path, ok := c.history.Forward()
	if !ok {
		return c.active, false
	}
	return c.Dispatch(PopState(path))
}

func (c *Controller) mount(view ViewState) Mounted {
	prev := c.active
	hadPrev := prev.Instance != 0
	c.sequence++
	c.active = Mounted{View: view, Instance: c.sequence}
	if c.mounter != nil {
		if hadPrev {
			c.mounter.Unmount(prev)
		}
		c.mounter.Mount(c.active)
	}
	logging.WithView(c.log, c.active.Path(), c.active.Instance).Debug("view mounted", "state", view.String())
	return c.active
}
