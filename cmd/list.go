package cmd

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/crytic/seedfuzz/codegen"
	"github.com/crytic/seedfuzz/definition"
	"github.com/crytic/seedfuzz/utils"
	"github.com/spf13/cobra"
)

// listCmd represents the command provider for listing test definitions
var listCmd = &cobra.Command{
	Use:   "list [patterns...]",
	Short: "Lists the test definitions of annotated packages",
	Long: `Lists the test definitions of annotated packages.

Each test is shown with its stable identifier, fixture, runs and seed, followed by its
parameters. Ranged parameters show the share of their type's domain the range covers.`,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunList,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	addConfigFlag(listCmd)
	rootCmd.AddCommand(listCmd)
}

// cmdRunList executes the CLI list command
func cmdRunList(cmd *cobra.Command, args []string) error {
	projectConfig, err := loadProjectConfig(cmd)
	if err != nil {
		return err
	}
	if err = projectConfig.Validate(); err != nil {
		return err
	}

	closeLogs, err := configureLogging(projectConfig.Logging)
	if err != nil {
		return err
	}
	defer closeLogs()

	generator := codegen.NewGenerator(projectConfig.Generation)
	packages, err := generator.ParsePackages(context.Background(), args...)
	if err != nil {
		return err
	}
	return writeTestTable(os.Stdout, packages)
}

// writeTestTable writes one row per test definition, followed by one indented row per generated parameter.
func writeTestTable(out io.Writer, packages []*codegen.Package) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTEST\tKIND\tFIXTURE\tRUNS\tSEED")
	for _, pkg := range packages {
		pkgPath := packageImportPath(pkg.Dir)
		for _, spec := range pkg.Specs() {
			fixture := spec.FixtureType
			if fixture == "" {
				fixture = "-"
			}
			runs, seed := "-", "-"
			if spec.Kind == definition.KindFuzz {
				runs = fmt.Sprint(spec.Runs)
				seed = fmt.Sprint(spec.Seed)
				if !spec.SeedExplicit {
					seed += " (default)"
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", spec.ID(pkgPath), spec.TestName(), spec.Kind, fixture, runs, seed)
			for _, param := range spec.Params {
				fmt.Fprintf(w, "\t  %s %s\t%s\t\t\t\n", param.Name, param.Type.Name, describeDomain(param))
			}
		}
	}
	return w.Flush()
}

// packageImportPath returns the import path of the package in dir, or the directory itself outside of a module.
func packageImportPath(dir string) string {
	module, err := codegen.FindModule(dir)
	if err == nil {
		if importPath, err := module.ImportPath(dir); err == nil {
			return importPath
		}
	}
	cmdLogger.Debug("Unable to resolve the import path of ", dir, ", identifying its tests by directory", err)
	return dir
}

// describeDomain describes the values a parameter is drawn from. Ranges with constant bounds also show the exact
// share of the type's domain they cover.
func describeDomain(param definition.ParamSpec) string {
	if param.Range == nil {
		return "full domain"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("range(%s..%s)", param.Range.Start, param.Range.End))
	if width := rangeWidth(param.Range); width != nil {
		share := utils.GetRangeShare(param.Type.Signed, param.Type.Bits, param.Range.StartValue, param.Range.EndValue)
		sb.WriteString(fmt.Sprintf(" %s values, %s%% of domain", width, share.Shift(2).Round(6).String()))
	}
	return sb.String()
}

// rangeWidth returns the number of values of a range with constant bounds, or nil if a bound is not constant.
func rangeWidth(r *definition.RangeSpec) *big.Int {
	if r == nil || r.StartValue == nil || r.EndValue == nil {
		return nil
	}
	return new(big.Int).Sub(r.EndValue, r.StartValue)
}
