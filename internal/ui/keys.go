package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit          key.Binding
	Help          key.Binding
	CycleTheme    key.Binding
	Notifications key.Binding
	Back          key.Binding
	Forward       key.Binding
	Dismiss       key.Binding

	// Navigation within a view
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Query list
	Add       key.Binding
	Edit      key.Binding
	View      key.Binding
	Delete    key.Binding
	Clear     key.Binding
	Subscribe key.Binding
	Reload    key.Binding

	// Editor
	NextField key.Binding
	PrevField key.Binding
	ToggleSub key.Binding
	Save      key.Binding
	Cancel    key.Binding

	// Ad list
	Home key.Binding

	// Confirmation
	Yes key.Binding
	No  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Notifications: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "Toggle notifications"),
		),
		Back: key.NewBinding(
			key.WithKeys("[", "alt+left"),
			key.WithHelp("[", "History back"),
		),
		Forward: key.NewBinding(
			key.WithKeys("]", "alt+right"),
			key.WithHelp("]", "History forward"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Dismiss alert"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("ctrl+u", "Page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("ctrl+d", "Page down"),
		),

		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Add query"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "Edit query"),
		),
		View: key.NewBinding(
			key.WithKeys("v", "enter"),
			key.WithHelp("v/enter", "View ads"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Delete query"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Clear results"),
		),
		Subscribe: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Toggle query alerts"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reload"),
		),

		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "Next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "Previous field"),
		),
		ToggleSub: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "Toggle alerts"),
		),
		Save: key.NewBinding(
			key.WithKeys("enter", "ctrl+s"),
			key.WithHelp("enter", "Save"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Cancel"),
		),

		Home: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "Query list"),
		),

		Yes: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "Confirm"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n/esc", "Keep"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Back, k.Forward, k.Up, k.Down, k.Top, k.Bottom},
		{k.Add, k.Edit, k.View, k.Delete, k.Clear, k.Subscribe, k.Reload},
		{k.NextField, k.ToggleSub, k.Save, k.Cancel},
		{k.Home, k.PageDown, k.PageUp},
		{k.Notifications, k.Dismiss, k.CycleTheme, k.Help, k.Quit},
	}
}
