package main

import (
	"os"

	lumelink "github.com/lumelink/lumelink"
	"github.com/urfave/cli/v2"
)

func versionCmd(*cli.Context) error {
	lumelink.PrintVersion(os.Stdout)
	return nil
}
