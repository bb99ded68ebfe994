// This API exposes the bundler to Go programs. The entry point is one Python
// file or package; the result is a single Python source file whose behavior
// matches running the original program, plus optional requirements metadata.
//
// Example usage:
//
//	result := api.Build(api.BuildOptions{
//	    EntryPoint: "app/main.py",
//	    Outfile:    "bundle.py",
//	})
//	if len(result.Errors) > 0 {
//	    os.Exit(1)
//	}
package api

type Location struct {
	File   string
	Line   int // 1-based
	Column int // 0-based, in bytes
	Length int // in bytes
}

type Message struct {
	Text     string
	Location *Location
}

type LogLevel uint8

const (
	LogLevelSilent LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
)

type StderrColor uint8

const (
	ColorIfTerminal StderrColor = iota
	ColorNever
	ColorAlways
)

type BuildOptions struct {
	// The Python file or package __init__.py the program starts from
	EntryPoint string

	// Where the bundle is written. Empty means the caller only wants the
	// in-memory result.
	Outfile string

	// Directories containing first-party code. Defaults to the entry point's
	// directory. Imports that do not resolve under these roots are preserved
	// as external.
	SourceRoots []string

	// The target Python version encoded as major*10+minor (38, 310, 312).
	// Zero means the default.
	PythonVersion int

	// Drop definitions unreachable from the entry module's roots
	TreeShake bool

	// Collect third-party imports into Requirements
	EmitRequirements bool

	Color    StderrColor
	LogLevel LogLevel
}

type BuildResult struct {
	Errors   []Message
	Warnings []Message

	// The bundled Python source
	Code string

	// Contents for a requirements.txt, empty unless requested
	Requirements string

	// How many AST nodes codegen synthesized and how many rewrites the
	// analysis recorded, for diagnostics
	NodesCreated    int
	Transformations int
}

// Build bundles one entry point synchronously. Diagnostics are returned on
// the result and, depending on LogLevel, also printed to stderr.
func Build(options BuildOptions) BuildResult {
	return buildImpl(options)
}
