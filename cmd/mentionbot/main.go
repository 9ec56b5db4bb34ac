package main

import (
	"os"

	"github.com/pvaldes/mention-bot/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
