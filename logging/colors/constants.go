package colors

// Color describes an ANSI SGR code.
type Color int

// ANSI codes used to colorize console output. The values mirror zerolog's console writer.
const (
	RED Color = iota + 31
	GREEN
	YELLOW
	BLUE
	MAGENTA
	CYAN

	// BOLD is the ANSI code for bold text
	BOLD Color = 1
)

// Glyphs used for console output.
const (
	// LEFT_ARROW is the unicode string for a left arrow glyph
	LEFT_ARROW = "⇾"
	// CROSS is the unicode string for a heavy ballot cross, used to prefix definition errors
	CROSS = "✗"
)
