package main

import (
	"os"

	"github.com/linkerd/fabricd/cmd/fabricd/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
