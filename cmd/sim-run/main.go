// Command sim-run is the entry point for replaying recorded fixtures
// against a candidate service and reporting pass/fail regressions.
package main

import (
	"os"

	"github.com/evalgo/simreplay/cli"
)

func main() {
	os.Exit(cli.Execute())
}
