package main

import (
	"os"

	"github.com/prism-labs/prism/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
