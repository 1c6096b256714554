package main

import (
	"fmt"
	"math/big"
	"os"
	"os/signal"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"

	"github.com/lumelink/lumelink/bridge"
	"github.com/lumelink/lumelink/config"
	"github.com/lumelink/lumelink/estimator"
	"github.com/lumelink/lumelink/log"
	"github.com/lumelink/lumelink/memo"
	"github.com/lumelink/lumelink/poller"
	"github.com/lumelink/lumelink/source"
	"github.com/lumelink/lumelink/store"
)

func depositCmd(cliCtx *cli.Context) error {
	return bridgeCmd(cliCtx, memo.KindDeposit)
}

func withdrawCmd(cliCtx *cli.Context) error {
	return bridgeCmd(cliCtx, memo.KindWithdraw)
}

func bridgeCmd(cliCtx *cli.Context, kind memo.Kind) error {
	c, err := config.Load(cliCtx)
	if err != nil {
		return err
	}
	log.Init(c.Log)

	amount, ok := new(big.Int).SetString(cliCtx.String(config.FlagAmount), 10)
	if !ok {
		return fmt.Errorf("invalid amount: %s", cliCtx.String(config.FlagAmount))
	}

	b, closer, err := newBridger(c)
	if err != nil {
		return err
	}
	defer closer()

	// interrupt aborts cleanly: before submission nothing is sent, after
	// submission the operation can be resumed with the printed tx id
	ctx, stop := signal.NotifyContext(cliCtx.Context, os.Interrupt)
	defer stop()

	var res bridge.BridgeResult
	switch kind {
	case memo.KindWithdraw:
		res, err = b.Withdraw(ctx, amount, nil)
	default:
		res, err = b.Deposit(ctx, amount, nil)
	}
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func resumeCmd(cliCtx *cli.Context) error {
	c, err := config.Load(cliCtx)
	if err != nil {
		return err
	}
	log.Init(c.Log)

	b, closer, err := newBridger(c)
	if err != nil {
		return err
	}
	defer closer()

	ctx, stop := signal.NotifyContext(cliCtx.Context, os.Interrupt)
	defer stop()

	res, err := b.Resume(ctx, cliCtx.String(config.FlagTx), nil)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func newBridger(c *config.Config) (*bridge.Bridger, func(), error) {
	destClient, err := ethclient.Dial(c.DestinationChain.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("error connecting to the destination chain: %w", err)
	}
	requests, err := store.NewStore(c.Store)
	if err != nil {
		destClient.Close()
		return nil, nil, err
	}

	gateway := source.NewGatewayClient(c.SourceLedger.GatewayURL, nil)
	b := bridge.New(
		c.Bridge,
		gateway,
		gateway,
		estimator.New(destClient, c.Estimator),
		poller.New(destClient, c.DestinationChain.OperatorContract, poller.DefaultDecoders(), c.Poller),
		requests,
		nil,
	)
	closer := func() {
		if err := requests.Close(); err != nil {
			log.Errorf("error closing store: %v", err)
		}
		destClient.Close()
	}
	return b, closer, nil
}

func printResult(res bridge.BridgeResult) {
	switch res.Status {
	case bridge.StatusConfirmed:
		log.Infof("bridge confirmed: source tx %s, destination tx %s, account %s",
			res.SourceTxID, res.DestinationTxID, res.PersonalAccount)
	case bridge.StatusTimedOut:
		log.Warnf("bridge timed out waiting for confirmation, resume later with: "+
			"lumelink resume --tx %s", res.SourceTxID)
	case bridge.StatusCancelled:
		if res.SourceTxID == "" {
			log.Warn("bridge cancelled before submission, nothing was sent")
		} else {
			log.Warnf("bridge cancelled, resume with: lumelink resume --tx %s", res.SourceTxID)
		}
	}
}
