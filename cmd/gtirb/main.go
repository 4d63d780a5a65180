// Command gtirb inspects, converts and stores serialized binary IR files.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rina-forks/gtirb/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}
	// ExitErrors have already been rendered by the command.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
