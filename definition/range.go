package definition

import (
	"go/ast"
	"go/constant"
	"go/parser"
	"go/token"
	"go/types"
	"math"
	"math/big"
	"sort"
	"strings"
)

// conversionTypes describes the type names allowed as conversions in range bound expressions.
var conversionTypes = map[string]bool{
	"uint8": true, "uint16": true, "uint32": true, "uint64": true, "uint": true, "uintptr": true, "byte": true,
	"int8": true, "int16": true, "int32": true, "int64": true, "int": true, "rune": true,
}

// ParseRange parses the argument text of a `seedfuzz:range(...)` directive, located at pos, for a parameter of the
// given type. The grammar is `start..end`: an inclusive lower bound and an exclusive upper bound, each a constant Go
// expression. Bounds that can be evaluated without package context are checked to be representable in typ and to
// form a non-empty range. A bound may not name an identifier declared by the generated harness.
func ParseRange(text string, pos token.Position, typ TypeInfo) (*RangeSpec, error) {
	r, err := parseRange(text, pos, typ, nil)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// parseRange implements ParseRange, returning a concrete error type. locals holds the names the test function declares,
// which are variables rather than constants where the harness evaluates the bounds.
func parseRange(text string, pos token.Position, typ TypeInfo, locals map[string]bool) (*RangeSpec, *DefinitionError) {
	if strings.Contains(text, "..=") {
		return nil, newDefinitionError(InvalidRange, pos, "inclusive ranges are not supported; use start..end with an exclusive end")
	}
	sep := strings.Index(text, "..")
	if sep < 0 {
		return nil, newDefinitionError(InvalidRange, pos, "range %q must have the form start..end", strings.TrimSpace(text))
	}

	startText := text[:sep]
	endText := text[sep+2:]
	startPos := offsetPosition(pos, leadingSpace(startText))
	endPos := offsetPosition(pos, sep+2+leadingSpace(endText))
	startText, endText = strings.TrimSpace(startText), strings.TrimSpace(endText)

	if startText == "" && endText == "" {
		return nil, newDefinitionError(IncompleteRange, pos, "range must have a start and an end bound")
	}
	if startText == "" {
		return nil, newDefinitionError(IncompleteRange, pos, "range ..%s must have a start bound", endText)
	}
	if endText == "" {
		return nil, newDefinitionError(IncompleteRange, endPos, "range %s.. must have an end bound", startText)
	}

	startExpr, err := parseBound(startText, startPos, locals)
	if err != nil {
		return nil, err
	}
	endExpr, err := parseBound(endText, endPos, locals)
	if err != nil {
		return nil, err
	}

	startValue, err := evaluateBound(startText, startPos, typ)
	if err != nil {
		return nil, err
	}
	endValue, err := evaluateBound(endText, endPos, typ)
	if err != nil {
		return nil, err
	}
	if startValue != nil && endValue != nil && !constant.Compare(startValue, token.LSS, endValue) {
		return nil, newDefinitionError(InvalidRange, pos, "range %s..%s is empty; the start must be less than the end", startText, endText)
	}

	return &RangeSpec{
		Start:      startText,
		End:        endText,
		Packages:   referencedPackages(startExpr, endExpr),
		StartValue: constantToBig(startValue),
		EndValue:   constantToBig(endValue),
		Pos:        pos,
	}, nil
}

// constantToBig converts an integer constant to a big.Int. A nil value converts to nil.
func constantToBig(value constant.Value) *big.Int {
	if value == nil {
		return nil
	}
	b, ok := new(big.Int).SetString(value.ExactString(), 10)
	if !ok {
		return nil
	}
	return b
}

// leadingSpace returns the number of leading space bytes of s.
func leadingSpace(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t"))
}

// parseBound parses one range bound and checks it is a constant expression that does not name a local of the
// generated harness.
func parseBound(text string, pos token.Position, locals map[string]bool) (ast.Expr, *DefinitionError) {
	// A third dot is left on a bound by `a...b`
	if strings.HasPrefix(text, ".") || strings.HasSuffix(text, ".") {
		return nil, newDefinitionError(InvalidRange, pos, "range %q must have the form start..end", text)
	}
	expr, err := parser.ParseExpr(text)
	if err != nil {
		return nil, newDefinitionError(InvalidRange, pos, "range bound %q is not a valid expression", text)
	}
	if !isConstantExpr(expr) {
		return nil, newDefinitionError(InvalidRange, pos, "range bound %q is not a constant expression", text)
	}
	for _, ident := range boundIdents(expr) {
		if locals[ident.Name] || reservedNames[ident.Name] {
			return nil, newDefinitionError(InvalidRange, pos, "range bound %q refers to %s, which is not a constant in the generated test", text, ident.Name)
		}
	}
	return expr, nil
}

// boundIdents returns the unqualified identifiers of a constant expression, excluding package names of qualified
// identifiers and the type names of conversions.
func boundIdents(expr ast.Expr) []*ast.Ident {
	var idents []*ast.Ident
	ast.Inspect(expr, func(n ast.Node) bool {
		switch e := n.(type) {
		case *ast.SelectorExpr:
			return false
		case *ast.CallExpr:
			for _, arg := range e.Args {
				idents = append(idents, boundIdents(arg)...)
			}
			return false
		case *ast.Ident:
			idents = append(idents, e)
		}
		return true
	})
	return idents
}

// isConstantExpr reports whether expr is syntactically a constant expression: literals, named constants, operators
// and conversions to integer types.
func isConstantExpr(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.BasicLit:
		return e.Kind == token.INT || e.Kind == token.CHAR || e.Kind == token.FLOAT
	case *ast.Ident:
		return true
	case *ast.SelectorExpr:
		_, ok := e.X.(*ast.Ident)
		return ok
	case *ast.ParenExpr:
		return isConstantExpr(e.X)
	case *ast.UnaryExpr:
		switch e.Op {
		case token.ADD, token.SUB, token.XOR:
			return isConstantExpr(e.X)
		}
		return false
	case *ast.BinaryExpr:
		switch e.Op {
		case token.ADD, token.SUB, token.MUL, token.QUO, token.REM,
			token.AND, token.OR, token.XOR, token.SHL, token.SHR, token.AND_NOT:
			return isConstantExpr(e.X) && isConstantExpr(e.Y)
		}
		return false
	case *ast.CallExpr:
		fun, ok := e.Fun.(*ast.Ident)
		if !ok || !conversionTypes[fun.Name] || len(e.Args) != 1 || e.Ellipsis.IsValid() {
			return false
		}
		return isConstantExpr(e.Args[0])
	}
	return false
}

// evaluateBound evaluates a bound in the universe scope. It returns a nil value when the bound references names that
// only the package can resolve, in which case the compiler checks it when the harness is built.
func evaluateBound(text string, pos token.Position, typ TypeInfo) (constant.Value, *DefinitionError) {
	tv, err := types.Eval(token.NewFileSet(), nil, token.NoPos, text)
	if err != nil || tv.Value == nil {
		return nil, nil
	}

	value := constant.ToInt(tv.Value)
	if value.Kind() != constant.Int {
		return nil, newDefinitionError(InvalidRange, pos, "range bound %s is not an integer", text)
	}
	lo, hi := typeBounds(typ)
	if constant.Compare(value, token.LSS, lo) || constant.Compare(value, token.GTR, hi) {
		return nil, newDefinitionError(InvalidRange, pos, "range bound %s overflows %s", text, boundTypeName(typ))
	}
	return value, nil
}

// typeBounds returns the smallest and largest constants a range bound of typ may take. Bounds of 256-bit parameters
// are passed through uint256.NewInt and must therefore fit 64 bits.
func typeBounds(typ TypeInfo) (constant.Value, constant.Value) {
	if typ.Kind == Uint256Type {
		return constant.MakeUint64(0), constant.MakeUint64(math.MaxUint64)
	}
	if typ.Signed {
		hi := constant.Shift(constant.MakeInt64(1), token.SHL, uint(typ.Bits-1))
		lo := constant.UnaryOp(token.SUB, hi, 0)
		return lo, constant.BinaryOp(hi, token.SUB, constant.MakeInt64(1))
	}
	hi := constant.Shift(constant.MakeInt64(1), token.SHL, uint(typ.Bits))
	return constant.MakeInt64(0), constant.BinaryOp(hi, token.SUB, constant.MakeInt64(1))
}

// boundTypeName returns the type a range bound is converted to.
func boundTypeName(typ TypeInfo) string {
	if typ.Kind == Uint256Type {
		return "uint64"
	}
	return typ.Name
}

// referencedPackages returns the sorted, de-duplicated package identifiers of the selector expressions in exprs.
func referencedPackages(exprs ...ast.Expr) []string {
	seen := map[string]bool{}
	for _, expr := range exprs {
		ast.Inspect(expr, func(n ast.Node) bool {
			if sel, ok := n.(*ast.SelectorExpr); ok {
				if ident, ok := sel.X.(*ast.Ident); ok {
					seen[ident.Name] = true
				}
			}
			return true
		})
	}
	if len(seen) == 0 {
		return nil
	}
	packages := make([]string, 0, len(seen))
	for name := range seen {
		packages = append(packages, name)
	}
	sort.Strings(packages)
	return packages
}
