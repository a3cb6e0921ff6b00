// Package main provides the entry point for the syncdex CLI.
package main

import (
	"os"

	"github.com/kailas-cloud/syncdex/cmd/syncdex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
