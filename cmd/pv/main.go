// Package main is the entry point for the PassVault CLI.
package main

import (
	"os"

	"github.com/passvault-io/passvault/cmd/pv/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
