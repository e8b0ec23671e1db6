//go:build !windows

package colors

import "fmt"

// EnableColor is a no-op on non-windows systems because their terminals support ANSI escape codes.
func EnableColor() {}

// Colorize returns s wrapped in ANSI code c, or s formatted as-is if coloring was disabled.
func Colorize(s any, c Color) string {
	if !enabled {
		return fmt.Sprintf("%v", s)
	}
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}
