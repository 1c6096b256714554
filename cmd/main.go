package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/lumelink/lumelink/config"
)

const appName = "lumelink"

var (
	configFileFlag = cli.StringFlag{
		Name:     config.FlagCfg,
		Aliases:  []string{"c"},
		Usage:    "Configuration `FILE`",
		Required: false,
	}
	amountFlag = cli.StringFlag{
		Name:     config.FlagAmount,
		Aliases:  []string{"a"},
		Usage:    "Amount to bridge, in the smallest unit",
		Required: true,
	}
	txFlag = cli.StringFlag{
		Name:     config.FlagTx,
		Usage:    "Source transaction id of a previously submitted bridge",
		Required: true,
	}
)

func main() {
	app := cli.NewApp()
	app.Name = appName
	app.Usage = "bridge value between the source ledger and the destination chain"

	app.Commands = []*cli.Command{
		{
			Name:   "version",
			Usage:  "Application version and build",
			Action: versionCmd,
		},
		{
			Name:   "deposit",
			Usage:  "Bridge an amount from the source ledger into the destination chain",
			Action: depositCmd,
			Flags:  []cli.Flag{&configFileFlag, &amountFlag},
		},
		{
			Name:   "withdraw",
			Usage:  "Bridge an amount from the destination chain back to the source ledger",
			Action: withdrawCmd,
			Flags:  []cli.Flag{&configFileFlag, &amountFlag},
		},
		{
			Name:   "resume",
			Usage:  "Keep waiting for the confirmation of a previously submitted bridge",
			Action: resumeCmd,
			Flags:  []cli.Flag{&configFileFlag, &txFlag},
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
		os.Exit(1)
	}
}
