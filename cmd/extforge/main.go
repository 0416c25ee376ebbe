// Package main provides the entry point for the extforge CLI.
package main

import (
	"fmt"
	"os"

	"github.com/extforge/extforge/cmd/extforge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
