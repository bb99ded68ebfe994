package config

// Options is a plain value type. Everything the pipeline needs to know is
// enumerated here so there is no hidden configuration state.
type Options struct {
	// The Python version stdlib membership and builtin-name checks are
	// resolved against, encoded as major*10+minor (38 means 3.8, 312 means
	// 3.12... the encoding is dense enough for every released version).
	PythonVersion uint16

	// If true, definitions not transitively reachable from the entry module's
	// roots are dropped from the output.
	TreeShake bool

	// If true, third-party imports observed in the bundle are collected into
	// a deduplicated requirements list.
	EmitRequirements bool

	// Directories that contain first-party code. Imports that do not resolve
	// to a file under one of these roots are treated as stdlib/third-party
	// and preserved.
	SourceRoots []string

	// If present, the bundle is written here instead of stdout.
	AbsOutputFile string
}

// DefaultPythonVersion is used when the caller does not pin a version.
const DefaultPythonVersion = 310

func (options *Options) EffectivePythonVersion() uint16 {
	if options.PythonVersion == 0 {
		return DefaultPythonVersion
	}
	return options.PythonVersion
}
