// Package codegen turns parsed seedfuzz test definitions into `go test` harness files.
package codegen

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"
	"text/template"

	"github.com/crytic/seedfuzz/definition"
	"github.com/pkg/errors"
	"golang.org/x/tools/imports"
)

const (
	// generatorImportPath is the import path of the value generators used by harnesses.
	generatorImportPath = "github.com/crytic/seedfuzz/generator"
	// harnessImportPath is the import path of the harness runtime.
	harnessImportPath = "github.com/crytic/seedfuzz/harness"
)

// harnessTemplate renders one harness file. Output is formatted afterwards, so the template only needs to be valid Go.
var harnessTemplate = template.Must(template.New("harness").Parse(`// Code generated by seedfuzz. DO NOT EDIT.
// Source: {{.Source}}

package {{.Package}}

import (
{{- range .Imports}}
	{{if .Name}}{{.Name}} {{end}}"{{.Path}}"
{{- end}}
)
{{range .Tests}}
{{if .Fuzz}}{{template "fuzz" .}}{{else}}{{template "test" .}}{{end}}
{{end}}

{{- define "fuzz"}}
// {{.TestName}} runs {{.Name}} for {{.Runs}} iterations from seed {{.Seed}}.
func {{.TestName}}(t *testing.T) {
	const seed uint64 = {{.Seed}}
	const runs uint32 = {{.Runs}}
{{if .Params}}
{{- range .Params}}
{{- if .Fallible}}
	{{.Name}}Gen, err := {{.Constructor}}
	if err != nil {
		t.Fatalf("{{.Name}}: %v", err)
	}
{{- else}}
	{{.Name}}Gen := {{.Constructor}}
{{- end}}
{{- end}}
{{end}}
	for iteration := uint32(0); iteration < runs; iteration++ {
		fixture := harness.Setup[{{.FixtureType}}]()
{{- range .Params}}
		{{.Name}} := {{.Name}}Gen.Generate()
{{- end}}

		err := harness.Isolate(func() error {
{{- if .ReturnsError}}
			return {{.Name}}({{.Args}})
{{- else}}
			{{.Name}}({{.Args}})
			return nil
{{- end}}
		})
		if err != nil {
			harness.Fail(t, &harness.Failure{
				Name:      "{{.Name}}",
				Seed:      seed,
				Iteration: iteration,
{{- if .Params}}
				Params: []harness.Param{
{{- range .Params}}
					{Name: "{{.Name}}", Value: {{.Name}}},
{{- end}}
				},
{{- end}}
				Err: err,
			})
		}
	}
}
{{- end}}

{{- define "test"}}
// {{.TestName}} runs {{.Name}} once.
func {{.TestName}}(t *testing.T) {
{{- if .FixtureType}}
	fixture := harness.Setup[{{.FixtureType}}]()
{{end}}
	err := harness.Isolate(func() error {
{{- if .ReturnsError}}
		return {{.Name}}({{.Args}})
{{- else}}
		{{.Name}}({{.Args}})
		return nil
{{- end}}
	})
	if err != nil {
		t.Fatal(err)
	}
}
{{- end}}
`))

// fileView describes the data rendered into one harness file.
type fileView struct {
	Source  string
	Package string
	Imports []importView
	Tests   []testView
}

// importView describes one import of a harness file.
type importView struct {
	Name string
	Path string
}

// testView describes one generated test function.
type testView struct {
	Fuzz         bool
	TestName     string
	Name         string
	FixtureType  string
	Seed         uint64
	Runs         uint32
	Params       []paramView
	Args         string
	ReturnsError bool
}

// paramView describes one generated parameter.
type paramView struct {
	Name        string
	Constructor string
	Fallible    bool
}

// Render renders the harness file for the test definitions of a source file. The output is gofmt-formatted and is
// identical for identical definitions. Returns an error if a range bound or fixture references a package the source
// file does not import.
func Render(file *definition.File) ([]byte, error) {
	if len(file.Specs) == 0 {
		return nil, errors.Errorf("%s declares no seedfuzz tests", file.Path)
	}

	view := fileView{
		Source:  path.Base(toSlash(file.Path)),
		Package: file.Package,
	}
	imports := newImportSet()
	imports.add("", "testing")
	imports.add("", harnessImportPath)

	for _, spec := range file.Specs {
		test, err := newTestView(file, spec, imports)
		if err != nil {
			return nil, err
		}
		view.Tests = append(view.Tests, test)
	}
	view.Imports = imports.sorted()

	var buf bytes.Buffer
	if err := harnessTemplate.Execute(&buf, view); err != nil {
		return nil, errors.WithStack(err)
	}
	return formatSource(file.Path, buf.Bytes())
}

// formatSource formats generated source and groups its imports.
func formatSource(filename string, src []byte) ([]byte, error) {
	formatted, err := imports.Process(filename, src, &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to format the harness generated for %s", filename)
	}
	return formatted, nil
}

// newTestView builds the view of one test definition, registering the imports it needs.
func newTestView(file *definition.File, spec *definition.TestSpec, imports *importSet) (testView, error) {
	test := testView{
		Fuzz:         spec.Kind == definition.KindFuzz,
		TestName:     spec.TestName(),
		Name:         spec.Name,
		FixtureType:  spec.FixtureType,
		Seed:         spec.Seed,
		Runs:         spec.Runs,
		ReturnsError: spec.ReturnsError,
	}
	if err := imports.addReferenced(file, spec.FixturePackages, spec.Name); err != nil {
		return test, err
	}

	var args []string
	if spec.FixtureType != "" {
		args = append(args, "fixture")
	}
	for _, param := range spec.Params {
		imports.add("", generatorImportPath)
		p, err := newParamView(param, imports)
		if err != nil {
			return test, err
		}
		if param.Range != nil {
			if err := imports.addReferenced(file, param.Range.Packages, spec.Name); err != nil {
				return test, err
			}
		}
		test.Params = append(test.Params, p)
		args = append(args, param.Name)
	}
	test.Args = strings.Join(args, ", ")
	return test, nil
}

// newParamView builds the generator constructor expression of a parameter. The generator is seeded with the base
// seed offset by the parameter index.
func newParamView(param definition.ParamSpec, imports *importSet) (paramView, error) {
	seed := fmt.Sprintf("generator.DeriveSeed(seed, %d)", param.Index)
	view := paramView{Name: param.Name, Fallible: param.Range != nil}

	switch param.Type.Kind {
	case definition.IntegerType:
		typ := param.Type.Name
		if param.Range == nil {
			view.Constructor = fmt.Sprintf("generator.NewFullRangeGenerator[%s](%s)", typ, seed)
		} else {
			view.Constructor = fmt.Sprintf("generator.NewRangeGenerator[%s](%s, %s(%s), %s(%s))",
				typ, seed, typ, param.Range.Start, typ, param.Range.End)
		}
	case definition.Uint256Type:
		if param.Range == nil {
			view.Constructor = fmt.Sprintf("generator.NewFullRangeGenerator256(%s)", seed)
		} else {
			imports.add("", definition.Uint256ImportPath)
			view.Constructor = fmt.Sprintf("generator.NewRangeGenerator256(%s, uint256.NewInt(uint64(%s)), uint256.NewInt(uint64(%s)))",
				seed, param.Range.Start, param.Range.End)
		}
	default:
		return view, errors.Errorf("parameter %s has unsupported type %s", param.Name, param.Type.Name)
	}
	return view, nil
}

// importSet collects the imports of a harness file.
type importSet struct {
	paths map[string]string
}

// newImportSet returns an empty importSet.
func newImportSet() *importSet {
	return &importSet{paths: map[string]string{}}
}

// add registers an import path under an optional local name.
func (s *importSet) add(name string, importPath string) {
	s.paths[importPath] = name
}

// addReferenced registers the imports of the source file that the given package identifiers refer to.
func (s *importSet) addReferenced(file *definition.File, packages []string, testName string) error {
	for _, pkg := range packages {
		importPath, ok := file.Imports[pkg]
		if !ok {
			return errors.Errorf("%s: %s references package %s, which the file does not import", file.Path, testName, pkg)
		}
		name := ""
		if path.Base(importPath) != pkg {
			name = pkg
		}
		s.add(name, importPath)
	}
	return nil
}

// sorted returns the imports ordered by path.
func (s *importSet) sorted() []importView {
	views := make([]importView, 0, len(s.paths))
	for importPath, name := range s.paths {
		views = append(views, importView{Name: name, Path: importPath})
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].Path < views[j].Path
	})
	return views
}

// toSlash converts OS path separators to forward slashes.
func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
