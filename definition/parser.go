package definition

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// GeneratedFileSuffix is the file name suffix of generated harness files, which the parser never reads.
const GeneratedFileSuffix = "_seedfuzz_test.go"

// reservedNames describes identifiers declared or referenced by generated harness code. A parameter with one of these
// names would shadow them in the generated test function.
var reservedNames = map[string]bool{
	"t":         true,
	"seed":      true,
	"runs":      true,
	"iteration": true,
	"fixture":   true,
	"err":       true,
	"testing":   true,
	"generator": true,
	"harness":   true,
	"uint256":   true,
}

// Options describes the defaults applied while parsing test definitions.
type Options struct {
	// DefaultRuns is the number of runs of a fuzz directive without `runs`. When nil, DefaultRuns is used. Zero is a
	// valid count and produces harnesses that never iterate.
	DefaultRuns *uint32

	// DefaultSeed is the seed of a fuzz directive without `seed`. When nil, the seed is derived from the current time.
	DefaultSeed *uint64

	// Now returns the current time. When nil, time.Now is used.
	Now func() time.Time
}

// defaultSeed returns the seed used by fuzz directives without an explicit seed.
func (o Options) defaultSeed() uint64 {
	if o.DefaultSeed != nil {
		return *o.DefaultSeed
	}
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	return uint64(now().Unix())
}

// defaultRuns returns the runs used by fuzz directives without an explicit runs option.
func (o Options) defaultRuns() uint32 {
	if o.DefaultRuns == nil {
		return DefaultRuns
	}
	return *o.DefaultRuns
}

// ParseSource parses Go source text and returns its test definitions. The filename is only used for positions.
func ParseSource(filename string, src []byte, opts Options) (*File, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return ParseFile(fset, file, opts)
}

// ParseDirectory parses every non-generated Go source file of a directory and returns the files declaring at least one
// test definition, sorted by path. Definition errors of every file are returned together as DefinitionErrors.
func ParseDirectory(dir string, opts Options) ([]*File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	fset := token.NewFileSet()
	var files []*File
	var defErrs DefinitionErrors
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, GeneratedFileSuffix) {
			continue
		}

		path := filepath.Join(dir, name)
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		astFile, err := parser.ParseFile(fset, path, src, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if ast.IsGenerated(astFile) {
			continue
		}

		file, err := ParseFile(fset, astFile, opts)
		if err != nil {
			var fileErrs DefinitionErrors
			if !errors.As(err, &fileErrs) {
				return nil, err
			}
			defErrs = append(defErrs, fileErrs...)
			continue
		}
		if len(file.Specs) > 0 {
			files = append(files, file)
		}
	}

	if err := defErrs.Err(); err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// ParseFile returns the test definitions of every directive-annotated function of a parsed file. The file must have
// been parsed with parser.ParseComments. Every definition error of the file is returned as DefinitionErrors.
func ParseFile(fset *token.FileSet, file *ast.File, opts Options) (*File, error) {
	p := &fileParser{
		fset: fset,
		file: file,
		opts: opts,
		result: &File{
			Path:    fset.Position(file.Package).Filename,
			Package: file.Name.Name,
			Imports: fileImports(file),
		},
	}

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		p.parseFunc(fn)
	}

	if err := p.errs.Err(); err != nil {
		return nil, err
	}
	return p.result, nil
}

// fileImports maps the local names of a file's imports to their paths. Blank and dot imports are skipped.
func fileImports(file *ast.File) map[string]string {
	imports := make(map[string]string, len(file.Imports))
	for _, spec := range file.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		name := filepath.Base(path)
		if spec.Name != nil {
			name = spec.Name.Name
		}
		if name == "_" || name == "." {
			continue
		}
		imports[name] = path
	}
	return imports
}

// fileParser holds the state of parsing one file.
type fileParser struct {
	fset   *token.FileSet
	file   *ast.File
	opts   Options
	result *File
	errs   DefinitionErrors
}

// fail records a definition error.
func (p *fileParser) fail(err *DefinitionError) {
	p.errs = append(p.errs, err)
}

// position returns the source position of pos.
func (p *fileParser) position(pos token.Pos) token.Position {
	return p.fset.Position(pos)
}

// parseFunc parses one function declaration. Functions without a seedfuzz directive are ignored.
func (p *fileParser) parseFunc(fn *ast.FuncDecl) {
	var raw *rawDirective
	if fn.Doc != nil {
		for _, c := range fn.Doc.List {
			r, derr, ok := splitDirective(c.Text, commentPosition(p.fset, c))
			if !ok {
				continue
			}
			if derr != nil {
				p.fail(derr)
				return
			}
			if raw != nil {
				p.fail(newDefinitionError(MalformedDeclaration, r.pos, "function %s carries more than one seedfuzz directive", fn.Name.Name))
				return
			}
			raw = r
		}
	}
	if raw == nil {
		return
	}

	directive, derr := parseRawDirective(raw)
	if derr != nil {
		p.fail(derr)
		return
	}

	spec := &TestSpec{
		Name:            fn.Name.Name,
		Kind:            directive.Kind,
		FixtureType:     directive.FixtureType,
		FixturePackages: directive.FixturePackages,
		Pos:             p.position(fn.Pos()),
	}
	if directive.Kind == KindFuzz {
		spec.Runs = p.opts.defaultRuns()
		if directive.RunsSet {
			spec.Runs = directive.Runs
		}
		spec.Seed, spec.SeedExplicit = p.opts.defaultSeed(), directive.SeedSet
		if directive.SeedSet {
			spec.Seed = directive.Seed
		}
	}

	errCount := len(p.errs)
	p.checkDeclaration(fn, spec)
	if directive.Kind == KindFuzz {
		p.parseParams(fn, spec)
	} else {
		p.checkTestParams(fn, spec)
	}
	if len(p.errs) == errCount {
		p.result.Specs = append(p.result.Specs, spec)
	}
}

// checkDeclaration checks the function is a plain function with no result or a single error result.
func (p *fileParser) checkDeclaration(fn *ast.FuncDecl, spec *TestSpec) {
	if fn.Recv != nil {
		p.fail(newDefinitionError(MalformedDeclaration, p.position(fn.Recv.Pos()), "%s must be a plain function, not a method", fn.Name.Name))
	}
	if fn.Type.TypeParams != nil && fn.Type.TypeParams.NumFields() > 0 {
		p.fail(newDefinitionError(MalformedDeclaration, p.position(fn.Type.TypeParams.Pos()), "%s must not have type parameters", fn.Name.Name))
	}
	if fn.Body == nil {
		p.fail(newDefinitionError(MalformedDeclaration, p.position(fn.Pos()), "%s must have a body", fn.Name.Name))
	}

	results := fn.Type.Results
	if results == nil || results.NumFields() == 0 {
		return
	}
	if results.NumFields() == 1 {
		if ident, ok := results.List[0].Type.(*ast.Ident); ok && ident.Name == "error" {
			spec.ReturnsError = true
			return
		}
	}
	p.fail(newDefinitionError(MalformedDeclaration, p.position(results.Pos()), "%s must return nothing or a single error", fn.Name.Name))
}

// param describes one flattened function parameter.
type param struct {
	name  *ast.Ident
	field *ast.Field
}

// flattenParams returns the parameters of a function one per name. Unnamed parameters have a nil name.
func flattenParams(fn *ast.FuncDecl) []param {
	var params []param
	for _, field := range fn.Type.Params.List {
		if len(field.Names) == 0 {
			params = append(params, param{field: field})
			continue
		}
		for _, name := range field.Names {
			params = append(params, param{name: name, field: field})
		}
	}
	return params
}

// checkTestParams checks the parameters of a test directive: exactly the fixture when a fixture is named, none
// otherwise.
func (p *fileParser) checkTestParams(fn *ast.FuncDecl, spec *TestSpec) {
	params := flattenParams(fn)
	for _, c := range p.paramComments(fn) {
		if _, _, ok := splitDirective(c.Text, commentPosition(p.fset, c)); ok {
			p.fail(newDefinitionError(MalformedParameter, commentPosition(p.fset, c), "test directives do not generate parameters; remove the range directive"))
		}
	}

	if spec.FixtureType == "" {
		if len(params) > 0 {
			p.fail(newDefinitionError(MalformedDeclaration, p.position(fn.Type.Params.Pos()), "%s has no fixture and must not have parameters", fn.Name.Name))
		}
		return
	}
	switch {
	case len(params) == 0:
		p.fail(newDefinitionError(MissingFixture, p.position(fn.Type.Params.Pos()), "%s must take the fixture %s as its parameter", fn.Name.Name, spec.FixtureType))
	case len(params) > 1:
		p.fail(newDefinitionError(MalformedDeclaration, p.position(params[1].field.Pos()), "%s must have exactly one parameter, the fixture %s", fn.Name.Name, spec.FixtureType))
	}
}

// parseParams parses the generated parameters of a fuzz directive, with their types and range modifiers.
func (p *fileParser) parseParams(fn *ast.FuncDecl, spec *TestSpec) {
	params := flattenParams(fn)
	if len(params) == 0 {
		p.fail(newDefinitionError(MissingFixture, p.position(fn.Type.Params.Pos()), "%s must take the fixture %s as its first parameter", fn.Name.Name, spec.FixtureType))
		return
	}

	ranges := p.fieldRanges(fn, params[0])
	locals := make(map[string]bool, 2*len(params))
	for _, prm := range params {
		if prm.name != nil {
			locals[prm.name.Name] = true
			locals[prm.name.Name+"Gen"] = true
		}
	}
	seen := map[string]bool{}
	for i, prm := range params[1:] {
		pos := p.position(prm.field.Pos())
		if prm.name != nil {
			pos = p.position(prm.name.Pos())
		}

		if !p.checkParamName(fn, prm, pos, seen) {
			continue
		}
		if _, ok := prm.field.Type.(*ast.Ellipsis); ok {
			p.fail(newDefinitionError(MalformedParameter, pos, "variadic parameter %s cannot be generated", prm.name.Name))
			continue
		}

		typ, ok := p.resolveType(prm.field.Type)
		if !ok {
			p.fail(newDefinitionError(UnsupportedType, p.position(prm.field.Type.Pos()), "parameter %s has unsupported type %s; supported types are fixed-width integers and *uint256.Int",
				prm.name.Name, types.ExprString(prm.field.Type)))
			continue
		}

		paramSpec := ParamSpec{
			Name:  prm.name.Name,
			Type:  typ,
			Index: i,
			Pos:   pos,
		}
		if rc, ok := ranges[prm.field]; ok {
			r, derr := parseRange(rc.args, rc.argsPos, typ, locals)
			if derr != nil {
				p.fail(derr)
				continue
			}
			paramSpec.Range = r
		}
		spec.Params = append(spec.Params, paramSpec)
	}
}

// checkParamName checks a generated parameter binds a simple, unique name that does not shadow names used by the
// generated harness.
func (p *fileParser) checkParamName(fn *ast.FuncDecl, prm param, pos token.Position, seen map[string]bool) bool {
	if prm.name == nil {
		p.fail(newDefinitionError(MalformedParameter, pos, "parameter of type %s must bind a name", types.ExprString(prm.field.Type)))
		return false
	}
	name := prm.name.Name
	switch {
	case name == "_":
		p.fail(newDefinitionError(MalformedParameter, pos, "parameter must bind a name, not the blank identifier"))
		return false
	case reservedNames[name]:
		p.fail(newDefinitionError(MalformedParameter, pos, "parameter name %s is reserved by the generated harness", name))
		return false
	case name == fn.Name.Name:
		p.fail(newDefinitionError(MalformedParameter, pos, "parameter name %s shadows the test function", name))
		return false
	case seen[name]:
		p.fail(newDefinitionError(MalformedParameter, pos, "parameter name %s is declared more than once", name))
		return false
	}
	for other := range seen {
		if other+"Gen" == name || name+"Gen" == other {
			p.fail(newDefinitionError(MalformedParameter, pos, "parameter names %s and %s collide in the generated harness", other, name))
			return false
		}
	}
	seen[name] = true
	return true
}

// resolveType returns the TypeInfo of a parameter type expression.
func (p *fileParser) resolveType(expr ast.Expr) (TypeInfo, bool) {
	switch t := expr.(type) {
	case *ast.Ident:
		return LookupType(t.Name)
	case *ast.StarExpr:
		sel, ok := t.X.(*ast.SelectorExpr)
		if !ok || sel.Sel.Name != "Int" {
			return TypeInfo{}, false
		}
		pkg, ok := sel.X.(*ast.Ident)
		if !ok || p.result.Imports[pkg.Name] != Uint256ImportPath {
			return TypeInfo{}, false
		}
		return uint256Type, true
	}
	return TypeInfo{}, false
}

// rangeComment describes a range directive attached to a parameter field.
type rangeComment struct {
	args    string
	argsPos token.Position
}

// paramComments returns the comments inside the parameter list of a function.
func (p *fileParser) paramComments(fn *ast.FuncDecl) []*ast.Comment {
	params := fn.Type.Params
	var comments []*ast.Comment
	for _, group := range p.file.Comments {
		if group.End() < params.Opening || group.Pos() > params.Closing {
			continue
		}
		for _, c := range group.List {
			if c.Pos() > params.Opening && c.End() <= params.Closing {
				comments = append(comments, c)
			}
		}
	}
	return comments
}

// fieldRanges associates every seedfuzz directive in the parameter list with the field it annotates. A directive
// annotates the field it is written inside, the field ending on its line, or the field starting on the next line.
func (p *fileParser) fieldRanges(fn *ast.FuncDecl, fixture param) map[*ast.Field]rangeComment {
	fields := fn.Type.Params.List
	ranges := map[*ast.Field]rangeComment{}
	for _, c := range p.paramComments(fn) {
		pos := commentPosition(p.fset, c)
		raw, derr, ok := splitDirective(c.Text, pos)
		if !ok {
			continue
		}
		if derr != nil {
			p.fail(derr)
			continue
		}
		if raw.verb != verbRange {
			p.fail(newDefinitionError(MalformedParameter, pos, "only range directives may annotate parameters, found %q", "seedfuzz:"+raw.verb))
			continue
		}

		field := p.annotatedField(fields, c)
		if field == nil {
			p.fail(newDefinitionError(MalformedParameter, pos, "range directive is not attached to a parameter"))
			continue
		}
		if field == fixture.field && len(field.Names) <= 1 {
			p.fail(newDefinitionError(MalformedParameter, pos, "the fixture parameter cannot take a range"))
			continue
		}
		if _, exists := ranges[field]; exists {
			p.fail(newDefinitionError(InvalidRange, pos, "parameter already has a range"))
			continue
		}
		if !raw.hasArgs {
			p.fail(newDefinitionError(IncompleteRange, pos, "range directive requires start..end"))
			continue
		}
		ranges[field] = rangeComment{args: raw.args, argsPos: raw.argsPos}
	}
	return ranges
}

// annotatedField returns the field a parameter comment annotates, or nil.
func (p *fileParser) annotatedField(fields []*ast.Field, c *ast.Comment) *ast.Field {
	line := p.fset.Position(c.Pos()).Line
	endLine := p.fset.Position(c.End()).Line

	for _, field := range fields {
		if field.Pos() <= c.Pos() && c.Pos() < field.End() {
			return field
		}
	}
	var trailing *ast.Field
	for _, field := range fields {
		if c.Pos() >= field.End() && p.fset.Position(field.End()).Line == line {
			trailing = field
		}
	}
	if trailing != nil {
		return trailing
	}
	for _, field := range fields {
		if c.End() <= field.Pos() && p.fset.Position(field.Pos()).Line == endLine+1 {
			return field
		}
	}
	return nil
}
