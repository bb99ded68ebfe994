package main

import (
	"fmt"
	"os"

	"github.com/cribo/cribo/internal/exitcode"
	"github.com/cribo/cribo/pkg/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "cribo:", err)
		exitcode.Exit(err)
	}
}
