// Package main provides the entry point for the colsearch CLI.
package main

import (
	"os"

	"github.com/colsearch/colsearch/cmd/colsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
