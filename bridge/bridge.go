// Package bridge sequences a whole bridge operation: encode the instruction,
// submit the source ledger payment, estimate where to start scanning the
// destination chain and poll until the operator's event shows up. It is the
// only component that produces a BridgeResult.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	cfgTypes "github.com/lumelink/lumelink/config/types"
	"github.com/lumelink/lumelink/db"
	"github.com/lumelink/lumelink/log"
	"github.com/lumelink/lumelink/memo"
	"github.com/lumelink/lumelink/poller"
	"github.com/lumelink/lumelink/source"
	"github.com/lumelink/lumelink/store"
)

// Status of a finished bridge operation. Timeouts and cancellations are
// statuses, not errors: both are expected, actionable outcomes.
type Status string

const (
	// StatusConfirmed: the matching destination event was observed.
	StatusConfirmed = Status("confirmed")
	// StatusTimedOut: the deadline passed first. Resume with the same
	// source tx id to keep waiting without resubmitting.
	StatusTimedOut = Status("timed_out")
	// StatusCancelled: the caller aborted while the operation was suspended.
	StatusCancelled = Status("cancelled")
)

// BridgeResult is the terminal outcome of one bridge operation.
type BridgeResult struct {
	SourceTxID      string
	DestinationTxID common.Hash
	PersonalAccount common.Address
	Status          Status
}

// Config of the orchestrator.
type Config struct {
	// Timeout is the polling budget per operation, matching the bridging
	// SLA assumed of the operator.
	Timeout cfgTypes.Duration `mapstructure:"Timeout"`
}

type positionEstimator interface {
	PositionAt(ctx context.Context, t time.Time) (uint64, error)
}

type eventFinder interface {
	Find(ctx context.Context, fromBlock uint64, correlationID string, deadline time.Time) (*poller.CandidateEvent, error)
}

type requestStore interface {
	AddRequest(ctx context.Context, req *store.Request) error
	GetRequest(ctx context.Context, sourceTxID string) (*store.Request, error)
	SetResult(ctx context.Context, res *store.Result) error
	GetResult(ctx context.Context, sourceTxID string) (*store.Result, error)
}

// Bridger drives bridge operations. Each operation owns its own state;
// a single Bridger can run unrelated operations concurrently.
type Bridger struct {
	cfg       Config
	submitter source.Submitter
	resolver  source.AddressResolver
	estimator positionEstimator
	finder    eventFinder
	store     requestStore
	progress  ProgressSink
	log       *log.Logger
}

func New(
	cfg Config,
	submitter source.Submitter,
	resolver source.AddressResolver,
	estimator positionEstimator,
	finder eventFinder,
	requests requestStore,
	progress ProgressSink,
) *Bridger {
	logger := log.WithFields("component", "bridge")
	if progress == nil {
		progress = LogProgress{Log: logger}
	}
	return &Bridger{
		cfg:       cfg,
		submitter: submitter,
		resolver:  resolver,
		estimator: estimator,
		finder:    finder,
		store:     requests,
		progress:  progress,
		log:       logger,
	}
}

// Deposit bridges amount from the source ledger into the destination chain.
func (b *Bridger) Deposit(ctx context.Context, amount *big.Int, onProgress ProgressSink) (BridgeResult, error) {
	return b.bridge(ctx, memo.Instruction{Kind: memo.KindDeposit, Amount: amount}, onProgress)
}

// Withdraw bridges amount from the destination chain back to the source ledger.
func (b *Bridger) Withdraw(ctx context.Context, amount *big.Int, onProgress ProgressSink) (BridgeResult, error) {
	return b.bridge(ctx, memo.Instruction{Kind: memo.KindWithdraw, Amount: amount}, onProgress)
}

// Resume re-polls a previously submitted bridge without resubmitting. Safe
// after a timeout, a crash or an estimation failure; if the bridge was
// already confirmed the recorded result is returned as-is.
func (b *Bridger) Resume(ctx context.Context, sourceTxID string, onProgress ProgressSink) (BridgeResult, error) {
	prev, err := b.store.GetResult(ctx, sourceTxID)
	if err == nil && Status(prev.Status) == StatusConfirmed {
		return BridgeResult{
			SourceTxID:      prev.SourceTxID,
			DestinationTxID: prev.DestinationTxID,
			PersonalAccount: prev.PersonalAccount,
			Status:          StatusConfirmed,
		}, nil
	}
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return BridgeResult{}, err
	}
	req, err := b.store.GetRequest(ctx, sourceTxID)
	if err != nil {
		return BridgeResult{}, fmt.Errorf("unknown source transaction %s: %w", sourceTxID, err)
	}
	return b.confirm(ctx, req, onProgress)
}

func (b *Bridger) bridge(ctx context.Context, ins memo.Instruction, onProgress ProgressSink) (BridgeResult, error) {
	// fail fast: an invalid instruction never reaches the network
	encoded, err := memo.Encode(ins)
	if err != nil {
		return BridgeResult{}, err
	}
	select {
	case <-ctx.Done():
		return BridgeResult{Status: StatusCancelled}, nil
	default:
	}

	operator, err := b.resolver.OperatorAddress(ctx)
	if err != nil {
		return BridgeResult{}, fmt.Errorf("error resolving operator address: %w", err)
	}
	// Not retried here: resubmitting risks paying twice. Errors surface
	// verbatim, retry policy belongs to the caller.
	txID, err := b.submitter.SubmitPayment(ctx, source.Payment{
		Amount:      ins.Amount,
		Destination: operator,
		Memo:        encoded[:],
	})
	if err != nil {
		return BridgeResult{}, err
	}
	b.log.Infof("%s of %s submitted on the source ledger as %s", ins.Kind, ins.Amount, txID)

	submittedAt := time.Now().UTC()
	tx, err := b.submitter.GetTransaction(ctx, txID)
	if err != nil {
		// payment is out, keep going on the local clock; the estimator's
		// safety margin absorbs the skew
		b.log.Warnf("error reading back transaction %s, using local clock: %v", txID, err)
	} else {
		submittedAt = tx.LedgerTime
	}

	req := &store.Request{
		SourceTxID:  txID,
		Kind:        uint8(ins.Kind),
		Amount:      ins.Amount,
		SubmittedAt: submittedAt,
	}
	if err := b.store.AddRequest(ctx, req); err != nil {
		b.log.Errorf("error persisting bridge request %s, resume won't be possible: %v", txID, err)
	}
	b.notify(onProgress, StageSubmitted)

	return b.confirm(ctx, req, onProgress)
}

func (b *Bridger) confirm(ctx context.Context, req *store.Request, onProgress ProgressSink) (BridgeResult, error) {
	fromBlock, err := b.estimator.PositionAt(ctx, req.SubmittedAt)
	if err != nil {
		// nothing was submitted twice, the caller can Resume
		return BridgeResult{}, err
	}
	b.notify(onProgress, StageWaitingConfirmation)

	deadline := time.Now().Add(b.cfg.Timeout.Duration)
	ev, err := b.finder.Find(ctx, fromBlock, req.SourceTxID, deadline)
	switch {
	case err == nil:
		res := BridgeResult{
			SourceTxID:      req.SourceTxID,
			DestinationTxID: ev.DestinationTxID,
			PersonalAccount: ev.Account,
			Status:          StatusConfirmed,
		}
		b.saveResult(ctx, res)
		return res, nil
	case errors.Is(err, poller.ErrExhausted):
		res := BridgeResult{SourceTxID: req.SourceTxID, Status: StatusTimedOut}
		b.saveResult(ctx, res)
		return res, nil
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return BridgeResult{SourceTxID: req.SourceTxID, Status: StatusCancelled}, nil
	default:
		return BridgeResult{}, err
	}
}

func (b *Bridger) saveResult(ctx context.Context, res BridgeResult) {
	err := b.store.SetResult(ctx, &store.Result{
		SourceTxID:      res.SourceTxID,
		Status:          string(res.Status),
		DestinationTxID: res.DestinationTxID,
		PersonalAccount: res.PersonalAccount,
	})
	if err != nil {
		b.log.Errorf("error persisting result for %s: %v", res.SourceTxID, err)
	}
}

func (b *Bridger) notify(onProgress ProgressSink, stage Stage) {
	sink := b.progress
	if onProgress != nil {
		sink = onProgress
	}
	sink.Notify(stage)
}
