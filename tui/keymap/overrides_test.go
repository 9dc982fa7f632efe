package keymap

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/assert"
)

func TestCamelToSnake(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ToggleDetails", "toggle_details"},
		{"PageUp", "page_up"},
		{"Up", "up"},
		{"A", "a"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, camelToSnake(tt.input))
		})
	}
}

type testKeyMap struct {
	Base
	ToggleDetails key.Binding
	unexported    key.Binding
	NotABinding   string
}

func TestApplyOverrides(t *testing.T) {
	km := testKeyMap{
		Base: NewBase(),
		ToggleDetails: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		NotABinding: "left alone",
	}

	ApplyOverrides(&km, Overrides{
		"toggle_details": {"d", "enter"},
		"quit":           {"x"},
		"not_a_binding":  {"z"},
	})

	assert.Equal(t, []string{"d", "enter"}, km.ToggleDetails.Keys())
	assert.Equal(t, "details", km.ToggleDetails.Help().Desc)
	assert.Equal(t, "d/enter", km.ToggleDetails.Help().Key)

	// Embedded bindings are reached too.
	assert.Equal(t, []string{"x"}, km.Quit.Keys())
	assert.Equal(t, "quit", km.Quit.Help().Desc)

	assert.Equal(t, []string{"k", "up"}, km.Up.Keys())
	assert.Equal(t, "left alone", km.NotABinding)
}

func TestApplyOverridesIgnoresNonPointers(t *testing.T) {
	km := NewBase()
	ApplyOverrides(km, Overrides{"quit": {"x"}})
	assert.Equal(t, []string{"q", "ctrl+c"}, km.Quit.Keys())

	ApplyOverrides(&km, nil)
	assert.Equal(t, []string{"q", "ctrl+c"}, km.Quit.Keys())
}

func TestBaseHelp(t *testing.T) {
	km := NewBase()
	assert.Len(t, km.ShortHelp(), 4)
	assert.Len(t, km.FullHelp(), 3)
}
