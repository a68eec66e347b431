// Package main is the entry point for the loopsql CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/loopsql/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
