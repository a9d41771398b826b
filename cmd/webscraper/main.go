// The main package for the webscraper executable.
package main

import (
	"github.com/JakeFAU/webscraper/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
