package resolver

// The resolver maps dotted import names to first-party source files under the
// configured source roots, assigns each discovered module a dense ModuleId,
// and parses sources on demand through a bounded cache.

import (
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/cribo/cribo/internal/fs"
	"github.com/cribo/cribo/internal/logger"
	"github.com/cribo/cribo/internal/py_ast"
)

// ModuleId is assigned on first discovery and never reused within a run.
// Ids are dense so slices indexed by ModuleId work everywhere downstream.
type ModuleId = uint32

const parseCacheSize = 256

type Module struct {
	Id ModuleId

	// The canonical dotted name, e.g. "pkg.sub"
	Name string

	// The absolute file path
	Path string

	// True when the file is a package __init__.py
	IsPackage bool
}

type Resolver struct {
	fs          fs.FS
	log         logger.Log
	sourceRoots []string

	byName  map[string]ModuleId
	modules []Module

	sources    map[ModuleId]logger.Source
	nextSrcIdx uint32
	parsed     *lru.Cache[ModuleId, py_ast.Module]
	parseFunc  func(log logger.Log, source *logger.Source) (py_ast.Module, bool)
}

// New creates a resolver over the given source roots. The parse callback is
// injected so this package stays independent of the parser.
func New(
	fsys fs.FS,
	log logger.Log,
	sourceRoots []string,
	parse func(log logger.Log, source *logger.Source) (py_ast.Module, bool),
) *Resolver {
	cache, _ := lru.New[ModuleId, py_ast.Module](parseCacheSize)
	return &Resolver{
		fs:          fsys,
		log:         log,
		sourceRoots: sourceRoots,
		byName:      make(map[string]ModuleId),
		sources:     make(map[ModuleId]logger.Source),
		parsed:      cache,
		parseFunc:   parse,
	}
}

// Resolve maps a dotted import name to a first-party module. For relative
// imports, level counts the leading dots and fromName is the canonical name
// of the importing module. Returns false when the name is not first-party.
func (r *Resolver) Resolve(name string, fromName string, fromIsPackage bool, level int) (ModuleId, bool) {
	absolute, ok := r.AbsoluteName(name, fromName, fromIsPackage, level)
	if !ok {
		return 0, false
	}
	return r.lookup(absolute)
}

// AbsoluteName resolves a possibly-relative import to its canonical dotted
// name without requiring the target to exist.
func (r *Resolver) AbsoluteName(name string, fromName string, fromIsPackage bool, level int) (string, bool) {
	if level == 0 {
		return name, true
	}

	// One dot means the importing module's own package. A module's package is
	// its name minus the last component, except a package __init__ which is
	// its own package.
	parts := strings.Split(fromName, ".")
	if !fromIsPackage {
		parts = parts[:len(parts)-1]
	}
	for i := 1; i < level; i++ {
		if len(parts) == 0 {
			return "", false
		}
		parts = parts[:len(parts)-1]
	}
	base := strings.Join(parts, ".")
	if name == "" {
		return base, base != ""
	}
	if base == "" {
		return name, true
	}
	return base + "." + name, true
}

func (r *Resolver) lookup(name string) (ModuleId, bool) {
	if id, ok := r.byName[name]; ok {
		return id, true
	}

	path, isPackage, found := r.findFile(name)
	if !found {
		return 0, false
	}

	id := ModuleId(len(r.modules))
	r.modules = append(r.modules, Module{
		Id:        id,
		Name:      name,
		Path:      path,
		IsPackage: isPackage,
	})
	r.byName[name] = id
	return id, true
}

func (r *Resolver) findFile(name string) (path string, isPackage bool, found bool) {
	relative := strings.ReplaceAll(name, ".", "/")
	for _, root := range r.sourceRoots {
		modulePath := r.fs.Join(root, relative+".py")
		if _, ok := r.fs.ReadFile(modulePath); ok {
			return modulePath, false, true
		}
		initPath := r.fs.Join(root, relative, "__init__.py")
		if _, ok := r.fs.ReadFile(initPath); ok {
			return initPath, true, true
		}
	}
	return "", false, false
}

// AddEntry registers the entry script under a fixed canonical name so it
// participates in the graph like any other module.
func (r *Resolver) AddEntry(path string, name string) (ModuleId, error) {
	if _, ok := r.fs.ReadFile(path); !ok {
		return 0, errors.Errorf("entry file not found: %s", path)
	}
	if id, ok := r.byName[name]; ok {
		return id, nil
	}
	id := ModuleId(len(r.modules))
	r.modules = append(r.modules, Module{Id: id, Name: name, Path: path})
	r.byName[name] = id
	return id, nil
}

// Lookup finds an already-discovered module by canonical name.
func (r *Resolver) Lookup(name string) (ModuleId, bool) {
	id, ok := r.byName[name]
	return id, ok
}

func (r *Resolver) Module(id ModuleId) Module {
	return r.modules[id]
}

func (r *Resolver) CanonicalName(id ModuleId) string {
	return r.modules[id].Name
}

// Modules returns all discovered modules ordered by ModuleId.
func (r *Resolver) Modules() []Module {
	return r.modules
}

// ModuleNames returns canonical names sorted alphabetically, for diagnostics.
func (r *Resolver) ModuleNames() []string {
	names := make([]string, 0, len(r.modules))
	for _, module := range r.modules {
		names = append(names, module.Name)
	}
	sort.Strings(names)
	return names
}

// Source loads the module's text, wrapped in a logger source for diagnostics.
func (r *Resolver) Source(id ModuleId) (logger.Source, error) {
	if source, ok := r.sources[id]; ok {
		return source, nil
	}
	module := r.modules[id]
	contents, ok := r.fs.ReadFile(module.Path)
	if !ok {
		return logger.Source{}, errors.Errorf("cannot read module %q at %s", module.Name, module.Path)
	}
	source := logger.Source{
		Index:          r.nextSrcIdx,
		KeyPath:        module.Path,
		PrettyPath:     module.Path,
		IdentifierName: module.Name,
		Contents:       contents,
	}
	r.nextSrcIdx++
	r.sources[id] = source
	return source, nil
}

// Parse returns the module's AST, cached across calls.
func (r *Resolver) Parse(id ModuleId) (py_ast.Module, error) {
	if ast, ok := r.parsed.Get(id); ok {
		return ast, nil
	}
	source, err := r.Source(id)
	if err != nil {
		return py_ast.Module{}, err
	}
	ast, ok := r.parseFunc(r.log, &source)
	if !ok {
		return py_ast.Module{}, errors.Errorf("syntax error in module %q", r.modules[id].Name)
	}
	r.parsed.Add(id, ast)
	return ast, nil
}

// IsFirstParty reports whether a dotted name resolves under the source roots.
func (r *Resolver) IsFirstParty(name string, fromName string, fromIsPackage bool, level int) bool {
	_, ok := r.Resolve(name, fromName, fromIsPackage, level)
	return ok
}
