package main

import (
	"os"

	"github.com/kovrin/spikeshort/cmd/spikeshort/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
