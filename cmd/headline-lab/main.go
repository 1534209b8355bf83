package main

import (
	"os"

	"github.com/headline-lab/headline-lab/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
