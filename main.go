package main

import (
	"os"

	"github.com/pugsite/pugsite/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
