package colours

import "github.com/fatih/color"

// Color scheme for the CLI
var (
	Title     = color.New(color.FgCyan, color.Bold)
	Speaker   = color.New(color.FgMagenta)
	Narration = color.New(color.FgWhite, color.Italic)
	Prompt    = color.New(color.FgGreen, color.Bold)
	Error     = color.New(color.FgRed, color.Bold)
	Success   = color.New(color.FgGreen)
	Info      = color.New(color.FgBlue)
	Warning   = color.New(color.FgYellow)
)

// Avatar maps an avatar colour token from the roster palette to a printer.
func Avatar(token string) *color.Color {
	switch token {
	case "red", "rose":
		return color.New(color.FgRed)
	case "orange", "amber":
		return color.New(color.FgYellow)
	case "green", "emerald", "teal":
		return color.New(color.FgGreen)
	case "cyan", "blue":
		return color.New(color.FgCyan)
	case "indigo", "violet", "purple":
		return color.New(color.FgBlue)
	case "fuchsia", "pink":
		return color.New(color.FgMagenta)
	default:
		return color.New(color.FgWhite)
	}
}
