package theme

// Nerd Font icons
const (
	nerdIconSuccess = "\U000f012c" // md-check (U+F012C)
	nerdIconError   = "\U0000ea87" // cod-error (U+EA87)
	nerdIconPending = "\U000f0996" // md-progress_clock (U+F0996)
	nerdIconArrow   = "\U000f0054" // md-arrow_right (U+F0054)
	nerdIconLoading = "\U0000f021" // fa-refresh (U+F021)
)

// ASCII fallbacks
const (
	asciiIconSuccess = "✓"
	asciiIconError   = "✗"
	asciiIconPending = "…"
	asciiIconArrow   = "→"
	asciiIconLoading = "~"
)

var (
	IconSuccess string
	IconError   string
	IconPending string
	IconArrow   string
	IconLoading string
)

func init() {
	setIcons(loadSettings().Icons == "ascii")
}

func setIcons(ascii bool) {
	if ascii {
		IconSuccess = asciiIconSuccess
		IconError = asciiIconError
		IconPending = asciiIconPending
		IconArrow = asciiIconArrow
		IconLoading = asciiIconLoading
		return
	}
	IconSuccess = nerdIconSuccess
	IconError = nerdIconError
	IconPending = nerdIconPending
	IconArrow = nerdIconArrow
	IconLoading = nerdIconLoading
}

// StateIcon returns the icon matching StateStyle's grouping of state.
func StateIcon(state string) string {
	switch state {
	case "completed", "done", "credential-issued", "credential-received":
		return IconSuccess
	case "abandoned", "declined":
		return IconError
	default:
		return IconPending
	}
}
