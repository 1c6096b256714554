// Package poller scans the destination chain for the event matching a source
// ledger transaction. The two ledgers share no transaction id format, so the
// match is done on the correlation id the operator copies into the event.
package poller

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	cfgTypes "github.com/lumelink/lumelink/config/types"
	"github.com/lumelink/lumelink/log"
)

// ErrExhausted is returned when the deadline passes with no matching event.
// It's an expected outcome: the caller can resume later with the same
// correlation id.
var ErrExhausted = errors.New("deadline exhausted before a matching event was found")

// EthClienter is the read-only view of the destination chain the poller needs.
// Must be safe for concurrent use.
type EthClienter interface {
	ethereum.LogFilterer
	ethereum.BlockNumberReader
}

// Config of the poller.
type Config struct {
	// PollInterval between head checks while waiting for new blocks.
	PollInterval cfgTypes.Duration `mapstructure:"PollInterval"`
	// BlockChunkSize caps how many blocks a single log query spans.
	BlockChunkSize uint64 `mapstructure:"BlockChunkSize"`
	// RetryAfterErrorPeriod between attempts after a client error.
	RetryAfterErrorPeriod cfgTypes.Duration `mapstructure:"RetryAfterErrorPeriod"`
	// MaxRetryAttemptsAfterError before the operation is given up.
	MaxRetryAttemptsAfterError int `mapstructure:"MaxRetryAttemptsAfterError"`
}

type state int

const (
	stateScanning state = iota
	stateMatched
	stateExhausted
)

// Poller drives the scan. One Find call owns its whole state, instances are
// safe to share across concurrent finds.
type Poller struct {
	client   EthClienter
	cfg      Config
	decoders LogDecoderMap
	topics   []common.Hash
	address  common.Address
	rh       *RetryHandler
	log      *log.Logger
}

func New(client EthClienter, operatorContract common.Address, decoders LogDecoderMap, cfg Config) *Poller {
	topics := make([]common.Hash, 0, len(decoders))
	for topic := range decoders {
		topics = append(topics, topic)
	}
	return &Poller{
		client:   client,
		cfg:      cfg,
		decoders: decoders,
		topics:   topics,
		address:  operatorContract,
		rh: &RetryHandler{
			RetryAfterErrorPeriod:      cfg.RetryAfterErrorPeriod.Duration,
			MaxRetryAttemptsAfterError: cfg.MaxRetryAttemptsAfterError,
		},
		log: log.WithFields("component", "poller"),
	}
}

// Find scans the chain from fromBlock until an event whose correlation id
// matches correlationID (case-insensitive) shows up, the deadline passes
// (ErrExhausted), or ctx is cancelled. The scanned window only ever moves
// forward; a block is never queried twice, and log queries are paced by the
// poll interval even while catching up a backlog.
func (p *Poller) Find(
	ctx context.Context, fromBlock uint64, correlationID string, deadline time.Time,
) (*CandidateEvent, error) {
	target := normalizeCorrelationID(correlationID)
	ticker := time.NewTicker(p.cfg.PollInterval.Duration)
	defer ticker.Stop()
	deadlineTimer := time.NewTimer(time.Until(deadline))
	defer deadlineTimer.Stop()

	st := stateScanning
	nextBlock := fromBlock
	attempts := 0
	for st == stateScanning {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadlineTimer.C:
			st = stateExhausted
			continue
		default:
		}

		head, err := p.client.BlockNumber(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			attempts++
			p.log.Error("error getting head from destination client: ", err)
			if handleErr := p.rh.Handle(ctx, "Find", attempts); handleErr != nil {
				return nil, handleErr
			}
			continue
		}
		attempts = 0

		if head < nextBlock {
			// No new positions. Head can even report smaller than what we
			// already scanned when load balanced nodes answer out of sync:
			// treat the same way, wait and ask again.
			p.log.Debugf("waiting for new blocks, next to scan: %d, head: %d", nextBlock, head)
			if err := p.suspend(ctx, ticker, deadlineTimer, &st); err != nil {
				return nil, err
			}
			continue
		}

		toBlock := head
		if p.cfg.BlockChunkSize > 0 && toBlock > nextBlock+p.cfg.BlockChunkSize-1 {
			toBlock = nextBlock + p.cfg.BlockChunkSize - 1
		}
		ev, err := p.scanRange(ctx, nextBlock, toBlock, target)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			st = stateMatched
			p.log.Infof("matched event %s at block %d for correlation id %s",
				ev.DestinationTxID, ev.BlockPosition, correlationID)
			return ev, nil
		}
		nextBlock = toBlock + 1
		if toBlock < head {
			// backlog left behind the head: pace the catch-up so the query
			// rate stays bounded by the poll interval
			if err := p.suspend(ctx, ticker, deadlineTimer, &st); err != nil {
				return nil, err
			}
		}
	}
	return nil, ErrExhausted
}

// suspend parks between head checks. Flips the state to exhausted when the
// deadline fires while parked.
func (p *Poller) suspend(
	ctx context.Context, ticker *time.Ticker, deadlineTimer *time.Timer, st *state,
) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-deadlineTimer.C:
		*st = stateExhausted
		return ErrExhausted
	case <-ticker.C:
		return nil
	}
}

func (p *Poller) scanRange(
	ctx context.Context, fromBlock, toBlock uint64, target string,
) (*CandidateEvent, error) {
	p.log.Debugf("getting events from block %d to %d", fromBlock, toBlock)
	logs, err := p.getLogs(ctx, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}
	for _, l := range logs {
		decode, ok := p.decoders[l.Topics[0]]
		if !ok {
			continue
		}
		ev, err := decode(l)
		if err != nil {
			p.log.Error("error decoding candidate log: ", err)
			continue
		}
		if normalizeCorrelationID(ev.CorrelationID) == target {
			return ev, nil
		}
		p.log.Debugf("discarding candidate %s, correlation id %s doesn't match",
			ev.DestinationTxID, ev.CorrelationID)
	}
	return nil, nil
}

func (p *Poller) getLogs(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{p.address},
	}
	var (
		attempts       = 0
		unfilteredLogs []types.Log
		err            error
	)
	for {
		unfilteredLogs, err = p.client.FilterLogs(ctx, query)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, ctx.Err()
			}
			attempts++
			p.log.Errorf("error calling FilterLogs to destination client: [%d, %d] err: %v",
				fromBlock, toBlock, err)
			if handleErr := p.rh.Handle(ctx, "getLogs", attempts); handleErr != nil {
				return nil, handleErr
			}
			continue
		}
		break
	}
	logs := make([]types.Log, 0, len(unfilteredLogs))
	for _, l := range unfilteredLogs {
		if len(l.Topics) == 0 {
			continue
		}
		for _, topic := range p.topics {
			if l.Topics[0] == topic {
				logs = append(logs, l)
				break
			}
		}
	}
	return logs, nil
}

// Correlation ids are compared hex-normalized: transports disagree on the
// casing and 0x prefix of the source transaction hash.
func normalizeCorrelationID(id string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(id), "0x"))
}
