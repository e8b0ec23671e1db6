package colors

import "fmt"

// ColorFunc is an alias type for a coloring function that accepts anything and returns a colorized string
type ColorFunc = func(s any) string

// Reset is a ColorFunc that returns the input formatted as-is. It resets the color context of a log message.
func Reset(s any) string {
	return fmt.Sprintf("%v", s)
}

// Bold is a ColorFunc that returns a bolded string of the provided input
func Bold(s any) string {
	return Colorize(s, BOLD)
}

// Red is used for the kind of a definition error.
func Red(s any) string {
	return Colorize(s, RED)
}

// Cyan is used for source positions.
func Cyan(s any) string {
	return Colorize(s, CYAN)
}

// The bold variants highlight log levels and result markers.
var (
	RedBold    = bold(RED)
	GreenBold  = bold(GREEN)
	YellowBold = bold(YELLOW)
	BlueBold   = bold(BLUE)
	CyanBold   = bold(CYAN)
)

// bold returns a ColorFunc which applies c, then bold.
func bold(c Color) ColorFunc {
	return func(s any) string {
		return Colorize(Colorize(s, c), BOLD)
	}
}
