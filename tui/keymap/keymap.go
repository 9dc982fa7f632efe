// Package keymap defines the key bindings of the interactive views.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/grovetools/recordsync/config"
)

// Overrides maps snake_case binding names to replacement keys, e.g. {"toggle_details": ["d"]}.
type Overrides map[string][]string

// Base contains the bindings shared by every view. Navigation prefers vim keys.
type Base struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding

	Quit key.Binding
	Help key.Binding
	Back key.Binding
}

// NewBase returns the default vim-style bindings.
func NewBase() Base {
	return Base{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("ctrl+u", "pgup"),
			key.WithHelp("ctrl+u", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("ctrl+d", "pgdown"),
			key.WithHelp("ctrl+d", "page down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "bottom"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (b Base) ShortHelp() []key.Binding {
	return []key.Binding{b.Up, b.Down, b.Help, b.Quit}
}

// FullHelp implements help.KeyMap.
func (b Base) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{b.Up, b.Down, b.PageUp, b.PageDown},
		{b.Top, b.Bottom},
		{b.Back, b.Help, b.Quit},
	}
}

// LoadOverrides reads the tui.keys section of the default config. Missing config yields nil.
func LoadOverrides() Overrides {
	cfg, err := config.LoadDefault()
	if err != nil || cfg == nil {
		return nil
	}
	var section struct {
		Keys Overrides `yaml:"keys"`
	}
	if err := cfg.UnmarshalExtension("tui", &section); err != nil {
		return nil
	}
	return section.Keys
}
