package recordview

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/grovetools/recordsync/tui/keymap"
)

type keyMap struct {
	keymap.Base
	ToggleDetails key.Binding
}

func newKeyMap(overrides keymap.Overrides) keyMap {
	km := keyMap{
		Base: keymap.NewBase(),
		ToggleDetails: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "details"),
		),
	}
	keymap.ApplyOverrides(&km, overrides)
	return km
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.ToggleDetails, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Top, k.Bottom},
		{k.ToggleDetails, k.Back},
		{k.Help, k.Quit},
	}
}

// tableKeys hands navigation to the bubbles table using our bindings.
func (k keyMap) tableKeys() table.KeyMap {
	off := key.NewBinding(key.WithDisabled())
	return table.KeyMap{
		LineUp:       k.Up,
		LineDown:     k.Down,
		PageUp:       k.PageUp,
		PageDown:     k.PageDown,
		HalfPageUp:   off,
		HalfPageDown: off,
		GotoTop:      k.Top,
		GotoBottom:   k.Bottom,
	}
}
