// The main package for the jobingest executable.
package main

import (
	"github.com/JakeFAU/jobingest/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
