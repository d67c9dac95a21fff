package vesting

import (
	"errors"
	"fmt"

	ethcmn "github.com/ethereum/go-ethereum/common"
)

var (
	// ErrReverted is returned when a transaction was mined with a failed status.
	ErrReverted = errors.New("transaction reverted")
	// ErrEmptyBatch is returned by the distributor for an empty receiver list.
	ErrEmptyBatch = errors.New("empty batch")
)

// Stage tells at which point of its lifecycle a record failed.
type Stage string

const (
	// StageSubmit means the node or the contract rejected the call before it
	// was broadcast (bad signature, estimation revert, transport failure).
	StageSubmit Stage = "submit"
	// StageConfirm means the transaction was broadcast but could not be
	// confirmed: it reverted, the wait timed out or the connection dropped.
	StageConfirm Stage = "confirm"
)

// BatchError halts a batch. Records before Index remain committed on chain.
type BatchError struct {
	Index  int
	Stage  Stage
	Result SubmissionResult
	Err    error
}

func (e *BatchError) Error() string {
	if e.Result.TxHash != (ethcmn.Hash{}) {
		return fmt.Sprintf("%s failed at record %d (%s, tx %s): %v", e.Result.Op, e.Index, e.Stage, e.Result.TxHash.Hex(), e.Err)
	}
	return fmt.Sprintf("%s failed at record %d (%s): %v", e.Result.Op, e.Index, e.Stage, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
