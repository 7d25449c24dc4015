package main

import (
	"os"

	"github.com/pababhi7/device-checker/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(cli.ExitError)
	}
}
