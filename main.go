// The main package for the agescraper executable.
package main

import (
	"github.com/climbtrack/agescraper/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
