package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Modal is the interface for modal dialogs.
// Update returns the updated modal, a command, and whether the modal should
// close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(styles Styles, width int) string
}

// confirmModal asks a yes/no question and runs onYes when confirmed.
type confirmModal struct {
	prompt string
	onYes  tea.Cmd
}

func newConfirm(prompt string, onYes tea.Cmd) confirmModal {
	return confirmModal{prompt: prompt, onYes: onYes}
}

func (c confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case key.Matches(km, keys.Yes):
		return c, c.onYes, true
	case key.Matches(km, keys.No):
		return c, nil, true
	}
	return c, nil, false
}

func (c confirmModal) View(styles Styles, width int) string {
	return styles.WarningText.Bold(true).Render(truncate(c.prompt, width-12)) +
		" " + styles.MutedText.Render("[y/n]")
}
