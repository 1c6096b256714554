// Package store persists what a single bridge correlation needs to be
// resumable: the accepted source transaction and, eventually, its terminal
// outcome. A timed out bridge can be re-polled later with the same source
// transaction id without paying twice.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"

	"github.com/lumelink/lumelink/db"
	"github.com/lumelink/lumelink/log"
	"github.com/lumelink/lumelink/store/migrations"
)

// Config of the store.
type Config struct {
	// DBPath of the SQLite file backing the store.
	DBPath string `mapstructure:"DBPath"`
}

// Request is the durable record of a source ledger payment that was
// accepted. Immutable once written.
type Request struct {
	SourceTxID  string    `meddler:"source_tx_id"`
	Kind        uint8     `meddler:"kind"`
	Amount      *big.Int  `meddler:"amount,bigint"`
	SubmittedAt time.Time `meddler:"submitted_at,timeutc"`
}

// Result is the terminal outcome recorded for a request.
type Result struct {
	SourceTxID      string         `meddler:"source_tx_id"`
	Status          string         `meddler:"status"`
	DestinationTxID common.Hash    `meddler:"destination_tx_id,hash"`
	PersonalAccount common.Address `meddler:"personal_account,address"`
}

const statusConfirmed = "confirmed"

// ErrAlreadyExists is returned when inserting a request whose source tx id
// was already recorded.
var ErrAlreadyExists = errors.New("request already exists")

// Store gives access to the bridge request/result tables.
type Store struct {
	db  *sql.DB
	log *log.Logger
}

func NewStore(cfg Config) (*Store, error) {
	if err := migrations.RunMigrations(cfg.DBPath); err != nil {
		return nil, err
	}
	database, err := db.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:  database,
		log: log.WithFields("component", "store"),
	}, nil
}

// AddRequest records an accepted source transaction. Inserting the same
// source tx id twice returns ErrAlreadyExists: a request is owned by one
// orchestration.
func (s *Store) AddRequest(ctx context.Context, req *Request) error {
	if err := meddler.Insert(s.db, "bridge_request", req); err != nil {
		if sqliteErr, ok := db.SQLiteErr(err); ok && sqliteErr.ExtendedCode == db.UniqueConstrain {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, req.SourceTxID)
		}
		return err
	}
	return nil
}

// GetRequest returns the request for the given source tx id, or
// db.ErrNotFound.
func (s *Store) GetRequest(ctx context.Context, sourceTxID string) (*Request, error) {
	return getRequest(s.db, sourceTxID)
}

func getRequest(q db.Querier, sourceTxID string) (*Request, error) {
	req := &Request{}
	err := meddler.QueryRow(q, req,
		"SELECT * FROM bridge_request WHERE source_tx_id = $1;", sourceTxID)
	if err != nil {
		return nil, db.ReturnErrNotFound(err)
	}
	return req, nil
}

// SetResult records the terminal outcome of a request. A confirmed result is
// never overwritten: at most one confirmation exists per source tx id.
func (s *Store) SetResult(ctx context.Context, res *Result) error {
	tx, err := db.NewTx(ctx, s.db)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				s.log.Errorf("error rolling back result tx: %v", rollbackErr)
			}
		}
	}()

	var existing *Result
	existing, err = getResult(tx, res.SourceTxID)
	switch {
	case err == nil:
		if existing.Status == statusConfirmed {
			s.log.Debugf("keeping confirmed result for %s", res.SourceTxID)
			return tx.Commit()
		}
		if _, err = tx.Exec("DELETE FROM bridge_result WHERE source_tx_id = $1;", res.SourceTxID); err != nil {
			return fmt.Errorf("error replacing result for %s: %w", res.SourceTxID, err)
		}
	case errors.Is(err, db.ErrNotFound):
		err = nil
	default:
		return err
	}

	if err = meddler.Insert(tx, "bridge_result", res); err != nil {
		return err
	}
	return tx.Commit()
}

// GetResult returns the recorded outcome for the given source tx id, or
// db.ErrNotFound.
func (s *Store) GetResult(ctx context.Context, sourceTxID string) (*Result, error) {
	return getResult(s.db, sourceTxID)
}

func getResult(q db.Querier, sourceTxID string) (*Result, error) {
	res := &Result{}
	err := meddler.QueryRow(q, res,
		"SELECT * FROM bridge_result WHERE source_tx_id = $1;", sourceTxID)
	if err != nil {
		return nil, db.ReturnErrNotFound(err)
	}
	return res, nil
}

// Close releases the underlying DB.
func (s *Store) Close() error {
	return s.db.Close()
}
