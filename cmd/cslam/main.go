package main

import (
	"os"

	"github.com/anadon/cslam/cmd/cslam/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
