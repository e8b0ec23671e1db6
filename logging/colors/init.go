package colors

// enabled describes whether Colorize wraps its input in ANSI codes.
var enabled = true

// init enables ANSI coloring where the platform needs an explicit check (Windows consoles).
func init() {
	EnableColor()
}

// DisableColor turns every ColorFunc into a plain formatter. It is used for --no-color and non-terminal output.
func DisableColor() {
	enabled = false
}

// Enabled reports whether colorized output is currently produced.
func Enabled() bool {
	return enabled
}
