// Package main provides the entry point for the recallq CLI.
package main

import (
	"os"

	"github.com/recallq/recallq/cmd/recallq/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
