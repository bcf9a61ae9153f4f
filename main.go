package main

import (
	"os"

	"github.com/yeha-adry/spacetime/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
