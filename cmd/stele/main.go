package main

import (
	"os"

	"github.com/b-harvest/stele-backend/cmd/stele/cmd"
)

func main() {
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
