package main

import (
	"os"

	"github.com/quantlab/fxbacktest/cmd/fxbacktest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
