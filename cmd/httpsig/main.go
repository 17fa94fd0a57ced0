package main

import (
	"os"

	"github.com/vitalvas/httpsig/cmd/httpsig/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
