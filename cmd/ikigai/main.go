package main

import (
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := newRootCommand(newCLI()).Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "❌ "+err.Error())
		os.Exit(1)
	}
}
