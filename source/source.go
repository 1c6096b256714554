// Package source is the boundary with the source ledger: the account-based
// payment network where bridge instructions are submitted as memo-carrying
// payments. Key management, signing and transport live behind these
// interfaces, outside the engine.
package source

import (
	"context"
	"math/big"
	"time"
)

// Payment is a source ledger payment order carrying an encoded instruction
// in its memo.
type Payment struct {
	Amount      *big.Int
	Destination string
	Memo        []byte
}

// Tx is a source ledger transaction as seen after it was accepted.
type Tx struct {
	ID         string
	LedgerTime time.Time
}

// Submitter submits payments on the source ledger and reads back accepted
// transactions. Submission is never retried by the engine: resubmitting
// risks paying twice, retry policy belongs to the caller.
type Submitter interface {
	SubmitPayment(ctx context.Context, p Payment) (txID string, err error)
	GetTransaction(ctx context.Context, txID string) (Tx, error)
}

// AddressResolver looks up the operator account that must receive bridge
// payments on the source ledger.
type AddressResolver interface {
	OperatorAddress(ctx context.Context) (string, error)
}
