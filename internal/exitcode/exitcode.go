// Package exitcode maps the errors the CLI surfaces onto process exit
// codes: 0 for success, 2 for usage problems, 1 for everything else.
package exitcode

import (
	"errors"
	"os"
)

// Coder attaches an explicit exit code to an error.
type Coder interface {
	error
	ExitCode() int
}

// Get returns the exit code for err: 0 for nil, the first Coder value in
// the chain, 1 otherwise.
func Get(err error) int {
	if err == nil {
		return 0
	}
	var c Coder
	if errors.As(err, &c) {
		return c.ExitCode()
	}
	return 1
}

// Set gives err an explicit exit code. The original error stays reachable
// through errors.Is and errors.As.
func Set(err error, code int) error {
	if err == nil {
		return nil
	}
	return coded{err: err, code: code}
}

type coded struct {
	err  error
	code int
}

func (c coded) Error() string { return c.err.Error() }
func (c coded) ExitCode() int { return c.code }
func (c coded) Unwrap() error { return c.err }

// Exit terminates the process with the code for err.
func Exit(err error) {
	os.Exit(Get(err))
}
