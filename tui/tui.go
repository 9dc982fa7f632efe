// Package tui holds terminal setup shared by the interactive views.
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// InitializeTUI picks the lipgloss color profile before a view starts. NO_COLOR disables color;
// CLICOLOR_FORCE=1 or COLORTERM=truecolor force true color when output is not a terminal.
func InitializeTUI() {
	lipgloss.SetColorProfile(ColorProfile())
}

// ColorProfile resolves the profile InitializeTUI applies.
func ColorProfile() termenv.Profile {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return termenv.Ascii
	}
	if os.Getenv("CLICOLOR_FORCE") == "1" || os.Getenv("COLORTERM") == "truecolor" {
		return termenv.TrueColor
	}
	return lipgloss.ColorProfile()
}
