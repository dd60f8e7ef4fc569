// Package main is the entry point for the kakitori CLI.
package main

import (
	"os"

	"github.com/f3rmion/kakitori/cmd/kakitori/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
