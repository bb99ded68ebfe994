package bundler

// The driver ties the pipeline together: resolve and parse every reachable
// module, build the graphs and semantic models, run analysis, plan, and emit
// the bundled source. Parsing happens entirely before analysis; codegen sees
// immutable inputs only.

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/cribo/cribo/internal/analysis"
	"github.com/cribo/cribo/internal/bundleplan"
	"github.com/cribo/cribo/internal/codegen"
	"github.com/cribo/cribo/internal/config"
	"github.com/cribo/cribo/internal/depgraph"
	"github.com/cribo/cribo/internal/fs"
	"github.com/cribo/cribo/internal/logger"
	"github.com/cribo/cribo/internal/py_ast"
	"github.com/cribo/cribo/internal/py_parser"
	"github.com/cribo/cribo/internal/py_printer"
	"github.com/cribo/cribo/internal/resolver"
	"github.com/cribo/cribo/internal/semantic"
	"github.com/cribo/cribo/internal/xform"
)

type Result struct {
	// The bundled module source
	Code string

	// Third-party top-level package names, sorted, one per requirements
	// line. Populated only when the option is on.
	Requirements []string

	// Statistics from the transformation record
	NodesCreated    int
	Transformations int
}

// Bundle runs the whole pipeline for one entry file.
func Bundle(fsys fs.FS, log logger.Log, options *config.Options, entryPath string) (Result, error) {
	absEntry, ok := fsys.Abs(entryPath)
	if !ok {
		return Result{}, errors.Errorf("invalid entry path: %s", entryPath)
	}
	entryName := moduleNameForPath(fsys, absEntry)

	roots := options.SourceRoots
	if len(roots) == 0 {
		roots = []string{fsys.Dir(absEntry)}
	}

	res := resolver.New(fsys, log, roots, py_parser.Parse)
	entry, err := res.AddEntry(absEntry, entryName)
	if err != nil {
		return Result{}, errors.Wrapf(err, "loading entry %q", entryPath)
	}

	registry := semantic.NewRegistry()
	graph, err := depgraph.Build(res, registry, log, options, entry)
	if err != nil {
		return Result{}, err
	}
	if log.HasErrors() {
		return Result{}, errors.New("parse errors prevent bundling")
	}

	models := func(id resolver.ModuleId) *semantic.Model {
		ast, err := res.Parse(id)
		if err != nil {
			return nil
		}
		return registry.Model(id, &ast)
	}

	result := analysis.Run(graph, models, res, options, log, entry)
	plan := bundleplan.Build(result, res, log, options.EffectivePythonVersion(), entry)

	ctx := xform.NewContextAt(maxNodeIndex(res))
	body, err := codegen.Generate(result, plan, res, log, ctx)
	if err != nil {
		return Result{}, err
	}

	out := Result{
		Code:            py_printer.Print(body),
		NodesCreated:    len(ctx.Records()),
		Transformations: result.TransformationCount(),
	}
	if options.EmitRequirements {
		out.Requirements = graph.ThirdPartyNames()
	}
	return out, nil
}

// RequirementsText renders the requirements list as file contents.
func RequirementsText(requirements []string) string {
	if len(requirements) == 0 {
		return ""
	}
	sorted := append([]string(nil), requirements...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\n") + "\n"
}

// moduleNameForPath derives the entry module's dotted name from its file
// path. A package entry keeps its package name.
func moduleNameForPath(fsys fs.FS, absPath string) string {
	base := fsys.Base(absPath)
	name := strings.TrimSuffix(base, ".py")
	if name == "__init__" {
		return fsys.Base(fsys.Dir(absPath))
	}
	return name
}

// maxNodeIndex finds the first free node index across all parsed modules so
// synthetic nodes never collide with parsed ones.
func maxNodeIndex(res *resolver.Resolver) py_ast.NodeIndex {
	var max py_ast.NodeIndex
	for _, name := range res.ModuleNames() {
		id, ok := res.Lookup(name)
		if !ok {
			continue
		}
		ast, err := res.Parse(id)
		if err != nil {
			continue
		}
		if ast.NextNodeIndex > max {
			max = ast.NextNodeIndex
		}
	}
	return max
}
