// Package estimator maps a source ledger timestamp to a destination chain
// block number to start scanning from. The two ledgers close at unrelated
// cadences, so the mapping is an extrapolation from the observed average
// block time. The estimate may undershoot (costs extra scanning) but must
// not land past the block holding the bridged event.
package estimator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	cfgTypes "github.com/lumelink/lumelink/config/types"
	"github.com/lumelink/lumelink/log"
)

// ErrEstimation is returned when the destination chain head can't be read.
var ErrEstimation = errors.New("error reading destination chain head")

// HeaderReader is the subset of the destination chain client needed to estimate.
type HeaderReader interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Config of the estimator.
type Config struct {
	// SafetyMargin is subtracted from the source timestamp before
	// extrapolating. Covers operator latency plus clock skew between the
	// two ledgers.
	SafetyMargin cfgTypes.Duration `mapstructure:"SafetyMargin"`
	// SampleSpan is how many blocks behind head to sample when measuring
	// the average block time.
	SampleSpan uint64 `mapstructure:"SampleSpan"`
	// FallbackBlockTime is used when the chain is too short (or the sample
	// is degenerate) to measure an average.
	FallbackBlockTime cfgTypes.Duration `mapstructure:"FallbackBlockTime"`
}

// Estimator extrapolates block numbers backwards from the chain head.
type Estimator struct {
	client HeaderReader
	cfg    Config
	log    *log.Logger
}

func New(client HeaderReader, cfg Config) *Estimator {
	return &Estimator{
		client: client,
		cfg:    cfg,
		log:    log.WithFields("component", "estimator"),
	}
}

// PositionAt returns a block number that is at or before the block the
// destination chain was closing at time t minus the safety margin.
func (e *Estimator) PositionAt(ctx context.Context, t time.Time) (uint64, error) {
	head, err := e.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEstimation, err)
	}
	headNum := head.Number.Uint64()

	target := t.Add(-e.cfg.SafetyMargin.Duration).Unix()
	if target < 0 {
		return 0, nil
	}
	secondsBack := int64(head.Time) - target
	if secondsBack <= 0 {
		// target is at or past the head, the event can't be behind us
		return headNum, nil
	}

	blockTime, err := e.averageBlockTime(ctx, head)
	if err != nil {
		return 0, err
	}
	e.log.Debugf("head %d at %d, target timestamp %d, avg block time %s",
		headNum, head.Time, target, blockTime)

	// round up so the estimate lands before the target, never after
	blocksBack := uint64(secondsBack)/uint64(blockTime.Seconds()) + 1
	if blocksBack >= headNum {
		return 0, nil
	}
	return headNum - blocksBack, nil
}

func (e *Estimator) averageBlockTime(ctx context.Context, head *types.Header) (time.Duration, error) {
	fallback := e.cfg.FallbackBlockTime.Duration
	if fallback <= 0 {
		fallback = time.Second
	}
	headNum := head.Number.Uint64()
	if e.cfg.SampleSpan == 0 || headNum == 0 {
		return fallback, nil
	}
	sampleNum := uint64(0)
	if headNum > e.cfg.SampleSpan {
		sampleNum = headNum - e.cfg.SampleSpan
	}
	sample, err := e.client.HeaderByNumber(ctx, new(big.Int).SetUint64(sampleNum))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEstimation, err)
	}
	if head.Time <= sample.Time {
		e.log.Warnf("degenerate block time sample between %d and %d, using fallback %s",
			sampleNum, headNum, fallback)
		return fallback, nil
	}
	elapsed := time.Duration(head.Time-sample.Time) * time.Second
	avg := elapsed / time.Duration(headNum-sampleNum)
	if avg < time.Second {
		avg = time.Second
	}
	return avg, nil
}
