package tui

import (
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestColorProfile(t *testing.T) {
	t.Run("no color wins", func(t *testing.T) {
		t.Setenv("NO_COLOR", "1")
		t.Setenv("CLICOLOR_FORCE", "1")
		assert.Equal(t, termenv.Ascii, ColorProfile())
	})

	t.Run("forced true color", func(t *testing.T) {
		t.Setenv("CLICOLOR_FORCE", "1")
		assert.Equal(t, termenv.TrueColor, ColorProfile())
	})
}
