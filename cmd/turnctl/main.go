package main

import (
	"os"

	"github.com/jwebster45206/turn-engine/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
