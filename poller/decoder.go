package poller

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// Bridged(address indexed account, uint256 amount, string sourceTx) is
	// emitted by the operator contract once it has replayed a source ledger
	// payment on the destination chain.
	bridgedEventSignature = crypto.Keccak256Hash([]byte("Bridged(address,uint256,string)"))

	bridgedEventArgs = abi.Arguments{
		{Name: "amount", Type: mustNewType("uint256")},
		{Name: "sourceTx", Type: mustNewType("string")},
	}
)

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// CandidateEvent is a decoded destination chain event under evaluation.
// Discarded unless its correlation id matches the source transaction.
type CandidateEvent struct {
	DestinationTxID common.Hash
	BlockPosition   uint64
	CorrelationID   string
	Account         common.Address
	Amount          *big.Int
}

// LogDecoder turns a raw log into a CandidateEvent.
type LogDecoder func(l types.Log) (*CandidateEvent, error)

// LogDecoderMap routes logs to decoders by their event signature (topic 0).
type LogDecoderMap map[common.Hash]LogDecoder

// DefaultDecoders returns the decoder map for the operator's Bridged event.
func DefaultDecoders() LogDecoderMap {
	return LogDecoderMap{
		bridgedEventSignature: decodeBridgedEvent,
	}
}

func decodeBridgedEvent(l types.Log) (*CandidateEvent, error) {
	const expectedTopics = 2 // signature + indexed account
	if len(l.Topics) != expectedTopics {
		return nil, fmt.Errorf("unexpected topics on Bridged log %s: %d", l.TxHash, len(l.Topics))
	}
	values, err := bridgedEventArgs.Unpack(l.Data)
	if err != nil {
		return nil, fmt.Errorf("error unpacking Bridged log %s: %w", l.TxHash, err)
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected amount type on Bridged log %s", l.TxHash)
	}
	sourceTx, ok := values[1].(string)
	if !ok {
		return nil, fmt.Errorf("unexpected sourceTx type on Bridged log %s", l.TxHash)
	}
	return &CandidateEvent{
		DestinationTxID: l.TxHash,
		BlockPosition:   l.BlockNumber,
		CorrelationID:   sourceTx,
		Account:         common.BytesToAddress(l.Topics[1].Bytes()),
		Amount:          amount,
	}, nil
}
