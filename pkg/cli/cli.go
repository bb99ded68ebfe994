// This API provides the bundler's command-line interface. It can be embedded
// in other Go programs that want to behave like the "cribo" executable.
//
// Every flag has a CRIBO_* environment-variable fallback; an explicit flag
// always wins over the environment.
package cli

import (
	"fmt"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/xyproto/env/v2"

	"github.com/cribo/cribo/internal/exitcode"
	"github.com/cribo/cribo/pkg/api"
)

type arguments struct {
	Entry            string   `arg:"positional,required" help:"entry Python script or package __init__.py"`
	Output           string   `arg:"-o,--output" help:"write the bundle here instead of stdout"`
	PythonVersion    int      `arg:"--python-version" help:"target version as major*10+minor, e.g. 310"`
	TreeShake        bool     `arg:"--tree-shake" help:"drop definitions unreachable from the entry"`
	EmitRequirements bool     `arg:"--emit-requirements" help:"collect third-party imports into requirements.txt"`
	SourceRoots      []string `arg:"--source-root,separate" help:"first-party source root (repeatable)"`
	Quiet            bool     `arg:"-q,--quiet" help:"suppress warnings"`
}

func (arguments) Description() string {
	return "cribo bundles a Python program into a single self-contained source file"
}

func defaultsFromEnv() arguments {
	return arguments{
		Output:           env.Str("CRIBO_OUTPUT"),
		PythonVersion:    env.Int("CRIBO_PYTHON_VERSION", 0),
		TreeShake:        env.Bool("CRIBO_TREE_SHAKE"),
		EmitRequirements: env.Bool("CRIBO_EMIT_REQUIREMENTS"),
	}
}

// Run performs one build for the given argument list. The returned error
// carries the process exit code via the exitcode package.
func Run(osArgs []string) error {
	args := defaultsFromEnv()
	parser, err := arg.NewParser(arg.Config{Program: "cribo"}, &args)
	if err != nil {
		return err
	}
	switch err := parser.Parse(osArgs); err {
	case nil:
	case arg.ErrHelp:
		parser.WriteHelp(os.Stdout)
		return nil
	default:
		parser.WriteUsage(os.Stderr)
		return exitcode.Set(err, 2)
	}

	logLevel := api.LogLevelWarning
	if args.Quiet {
		logLevel = api.LogLevelError
	}

	result := api.Build(api.BuildOptions{
		EntryPoint:       args.Entry,
		Outfile:          args.Output,
		SourceRoots:      args.SourceRoots,
		PythonVersion:    args.PythonVersion,
		TreeShake:        args.TreeShake,
		EmitRequirements: args.EmitRequirements,
		LogLevel:         logLevel,
	})
	if len(result.Errors) > 0 {
		return fmt.Errorf("bundling failed with %d error(s)", len(result.Errors))
	}

	if args.Output == "" {
		if _, err := os.Stdout.WriteString(result.Code); err != nil {
			return err
		}
	}
	return nil
}
