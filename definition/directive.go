package definition

import (
	"go/ast"
	"go/scanner"
	"go/token"
	"strconv"
	"strings"
	"unicode"
)

// directivePrefix is the prefix of every seedfuzz directive comment, following the `//go:` directive convention.
const directivePrefix = "seedfuzz:"

const (
	// verbFuzz declares a generative test on a function.
	verbFuzz = "fuzz"
	// verbTest declares a single-execution test on a function.
	verbTest = "test"
	// verbRange constrains the values generated for a parameter.
	verbRange = "range"
)

// Directive describes the parsed arguments of a `seedfuzz:fuzz` or `seedfuzz:test` directive.
type Directive struct {
	// Kind describes the test kind selected by the directive verb.
	Kind Kind

	// FixtureType is the fixture type expression, e.g. "*CounterFixture" or "fixtures.Counter".
	FixtureType string

	// FixturePackages are package identifiers referenced by FixtureType.
	FixturePackages []string

	// Runs is the `runs` option. Only meaningful when RunsSet is true.
	Runs uint32

	// RunsSet describes whether the `runs` option was supplied.
	RunsSet bool

	// Seed is the `seed` option. Only meaningful when SeedSet is true.
	Seed uint64

	// SeedSet describes whether the `seed` option was supplied.
	SeedSet bool

	// Pos describes the location of the directive comment.
	Pos token.Position
}

// rawDirective describes a directive comment split into its verb and argument text.
type rawDirective struct {
	verb    string
	args    string
	hasArgs bool
	pos     token.Position
	argsPos token.Position
}

// offsetPosition returns pos moved forward by n bytes on the same line.
func offsetPosition(pos token.Position, n int) token.Position {
	pos.Offset += n
	pos.Column += n
	return pos
}

// splitDirective splits the text of a comment into a rawDirective. It returns false when the comment is not a
// seedfuzz directive.
func splitDirective(text string, pos token.Position) (*rawDirective, *DefinitionError, bool) {
	var body string
	var offset int
	switch {
	case strings.HasPrefix(text, "//"+directivePrefix):
		offset = len("//" + directivePrefix)
		body = text[offset:]
	case strings.HasPrefix(text, "/*") && strings.HasSuffix(text, "*/"):
		inner := text[2 : len(text)-2]
		trimmed := strings.TrimLeftFunc(inner, unicode.IsSpace)
		if !strings.HasPrefix(trimmed, directivePrefix) {
			return nil, nil, false
		}
		offset = 2 + len(inner) - len(trimmed) + len(directivePrefix)
		body = strings.TrimRightFunc(trimmed[len(directivePrefix):], unicode.IsSpace)
	default:
		return nil, nil, false
	}

	raw := &rawDirective{pos: pos}
	verbEnd := strings.IndexFunc(body, func(r rune) bool { return !unicode.IsLetter(r) })
	if verbEnd < 0 {
		verbEnd = len(body)
	}
	raw.verb = body[:verbEnd]
	if raw.verb == "" {
		return nil, newDefinitionError(MalformedDeclaration, pos, "directive %q has no verb", text), true
	}

	rest := strings.TrimRightFunc(body[verbEnd:], unicode.IsSpace)
	if rest == "" {
		return raw, nil, true
	}
	if rest[0] != '(' {
		return nil, newDefinitionError(MalformedDeclaration, offsetPosition(pos, offset+verbEnd),
			"expected '(' after directive verb %q", raw.verb), true
	}
	if !strings.HasSuffix(rest, ")") {
		return nil, newDefinitionError(MalformedDeclaration, offsetPosition(pos, offset+verbEnd+len(rest)),
			"directive arguments of %q must end with ')'", raw.verb), true
	}
	raw.hasArgs = true
	raw.args = rest[1 : len(rest)-1]
	raw.argsPos = offsetPosition(pos, offset+verbEnd+1)
	return raw, nil, true
}

// commentPosition returns the position of a comment.
func commentPosition(fset *token.FileSet, c *ast.Comment) token.Position {
	return fset.Position(c.Slash)
}

// ParseDirective parses the text of a `//seedfuzz:fuzz(...)` or `//seedfuzz:test(...)` comment located at pos. The
// argument grammar is `fixture_type[, runs = <uint>][, seed = <uint>][,]` where fixture_type is a possibly
// pointer-qualified, possibly package-qualified type name. A test directive accepts only an optional fixture type.
func ParseDirective(text string, pos token.Position) (*Directive, error) {
	raw, derr, ok := splitDirective(text, pos)
	if !ok {
		return nil, newDefinitionError(MalformedDeclaration, pos, "%q is not a seedfuzz directive", text)
	}
	if derr != nil {
		return nil, derr
	}
	d, derr := parseRawDirective(raw)
	if derr != nil {
		return nil, derr
	}
	return d, nil
}

// parseRawDirective parses the arguments of a function directive.
func parseRawDirective(raw *rawDirective) (*Directive, *DefinitionError) {
	d := &Directive{Pos: raw.pos}
	switch raw.verb {
	case verbFuzz:
		d.Kind = KindFuzz
	case verbTest:
		d.Kind = KindTest
	case verbRange:
		return nil, newDefinitionError(MalformedParameter, raw.pos, "a range directive must annotate a parameter, not a function")
	default:
		return nil, newDefinitionError(MalformedDeclaration, raw.pos, "unknown directive %q; expected %q or %q", "seedfuzz:"+raw.verb, "seedfuzz:"+verbFuzz, "seedfuzz:"+verbTest)
	}

	if !raw.hasArgs || strings.TrimSpace(raw.args) == "" {
		if d.Kind == KindFuzz {
			return nil, newDefinitionError(MissingFixture, raw.pos, "fuzz directive requires a fixture type as its first argument")
		}
		return d, nil
	}

	a := newArgScanner(raw.args, raw.argsPos)
	if err := a.parseFixture(d); err != nil {
		return nil, err
	}
	if err := a.parseOptions(d); err != nil {
		return nil, err
	}
	return d, nil
}

// argScanner tokenizes directive arguments with the Go scanner, mapping token positions back into the source file.
type argScanner struct {
	s    scanner.Scanner
	file *token.File
	base token.Position
	err  *DefinitionError

	// peeked holds a token that was read ahead.
	peeked *scannedToken
}

// scannedToken describes one token read by an argScanner.
type scannedToken struct {
	pos token.Pos
	tok token.Token
	lit string
}

// newArgScanner returns a scanner over the directive argument text, which starts at base in the source file.
func newArgScanner(args string, base token.Position) *argScanner {
	a := &argScanner{base: base}
	fset := token.NewFileSet()
	a.file = fset.AddFile("", fset.Base(), len(args))
	a.s.Init(a.file, []byte(args), func(pos token.Position, msg string) {
		if a.err == nil {
			a.err = newDefinitionError(InvalidLiteral, offsetPosition(a.base, pos.Offset), "%s", msg)
		}
	}, 0)
	return a
}

// position maps a scanner position to the source file.
func (a *argScanner) position(pos token.Pos) token.Position {
	return offsetPosition(a.base, a.file.Offset(pos))
}

// next returns the next token, skipping the semicolons the scanner inserts at the end of the text.
func (a *argScanner) next() scannedToken {
	if a.peeked != nil {
		t := *a.peeked
		a.peeked = nil
		return t
	}
	for {
		pos, tok, lit := a.s.Scan()
		if tok == token.SEMICOLON && lit == "\n" {
			continue
		}
		return scannedToken{pos: pos, tok: tok, lit: lit}
	}
}

// peek returns the next token without consuming it.
func (a *argScanner) peek() scannedToken {
	if a.peeked == nil {
		t := a.next()
		a.peeked = &t
	}
	return *a.peeked
}

// unexpected returns an error describing an unexpected token.
func (a *argScanner) unexpected(t scannedToken, expected string) *DefinitionError {
	if a.err != nil {
		return a.err
	}
	found := t.tok.String()
	if t.lit != "" {
		found = t.lit
	}
	if t.tok == token.EOF {
		found = "end of directive"
	}
	return newDefinitionError(MalformedDeclaration, a.position(t.pos), "expected %s, found %s", expected, found)
}

// parseFixture parses the leading fixture type expression.
func (a *argScanner) parseFixture(d *Directive) *DefinitionError {
	var b strings.Builder
	t := a.next()
	if t.tok == token.MUL {
		b.WriteString("*")
		t = a.next()
	}
	if t.tok != token.IDENT {
		return a.unexpected(t, "fixture type")
	}
	// A leading `name =` is an option with the fixture type left out
	if a.peek().tok == token.ASSIGN && b.Len() == 0 {
		return newDefinitionError(MissingFixture, a.position(t.pos), "fixture type must be the first argument, found option %q", t.lit)
	}
	b.WriteString(t.lit)
	if a.peek().tok == token.PERIOD {
		a.next()
		sel := a.next()
		if sel.tok != token.IDENT {
			return a.unexpected(sel, "type name after "+t.lit+".")
		}
		b.WriteString("." + sel.lit)
		d.FixturePackages = []string{t.lit}
	}
	d.FixtureType = b.String()
	return a.err
}

// parseOptions parses the `, name = value` options following the fixture type.
func (a *argScanner) parseOptions(d *Directive) *DefinitionError {
	for {
		t := a.next()
		if t.tok == token.EOF {
			return a.err
		}
		if t.tok != token.COMMA {
			return a.unexpected(t, "','")
		}

		key := a.next()
		if key.tok == token.EOF {
			// Trailing comma
			return a.err
		}
		if key.tok != token.IDENT {
			return a.unexpected(key, "option name")
		}
		keyPos := a.position(key.pos)
		if d.Kind == KindTest {
			return newDefinitionError(UnknownOption, keyPos, "unknown option %q; test directives accept only a fixture type", key.lit)
		}
		switch key.lit {
		case "runs":
			if d.RunsSet {
				return newDefinitionError(DuplicateOption, keyPos, "option %q is given more than once", key.lit)
			}
		case "seed":
			if d.SeedSet {
				return newDefinitionError(DuplicateOption, keyPos, "option %q is given more than once", key.lit)
			}
		default:
			return newDefinitionError(UnknownOption, keyPos, "unknown option %q; expected runs or seed", key.lit)
		}

		if assign := a.next(); assign.tok != token.ASSIGN {
			return a.unexpected(assign, "'=' after "+key.lit)
		}

		value, err := a.parseUint(key.lit)
		if err != nil {
			return err
		}
		if key.lit == "runs" {
			d.Runs, d.RunsSet = uint32(value), true
		} else {
			d.Seed, d.SeedSet = value, true
		}
	}
}

// parseUint parses the non-negative integer literal value of an option. runs must fit 32 bits and seed 64 bits.
func (a *argScanner) parseUint(option string) (uint64, *DefinitionError) {
	bitSize := 64
	if option == "runs" {
		bitSize = 32
	}

	t := a.next()
	if a.err != nil {
		return 0, a.err
	}
	pos := a.position(t.pos)
	switch t.tok {
	case token.INT:
		value, err := strconv.ParseUint(t.lit, 0, bitSize)
		if err != nil {
			return 0, newDefinitionError(InvalidLiteral, pos, "%s value %s does not fit in uint%d", option, t.lit, bitSize)
		}
		return value, nil
	case token.SUB:
		return 0, newDefinitionError(InvalidLiteral, pos, "%s must be a non-negative integer literal", option)
	case token.FLOAT, token.IMAG, token.CHAR, token.STRING:
		return 0, newDefinitionError(InvalidLiteral, pos, "%s must be an integer literal, found %s literal %s", option, literalKind(t.tok), t.lit)
	case token.EOF:
		return 0, newDefinitionError(InvalidLiteral, pos, "%s requires an integer literal value", option)
	default:
		found := t.lit
		if found == "" {
			found = t.tok.String()
		}
		return 0, newDefinitionError(InvalidLiteral, pos, "%s must be an integer literal, found %s", option, found)
	}
}

// literalKind returns a readable name for a literal token.
func literalKind(tok token.Token) string {
	switch tok {
	case token.FLOAT:
		return "float"
	case token.IMAG:
		return "imaginary"
	case token.CHAR:
		return "rune"
	case token.STRING:
		return "string"
	}
	return tok.String()
}
