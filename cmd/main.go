package main

import (
	"os"

	"github.com/livequiz/session-engine/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
