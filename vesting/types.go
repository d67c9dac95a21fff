// Package vesting submits vesting schedules and the initial token distribution
// to a deployed TokenVesting contract, one confirmed transaction at a time.
package vesting

import (
	"context"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// Schedule is one beneficiary row of the vesting table, already converted to
// the units createVestingSchedule expects (seconds, smallest token unit).
type Schedule struct {
	Beneficiary        ethcmn.Address
	Start              uint64
	Cliff              uint64
	Duration           uint64
	SlicePeriodSeconds uint64
	Revocable          bool
	Amount             *uint256.Int
}

// Distribution is one (receiver, amount) pair of the initial transfer.
type Distribution struct {
	Receiver ethcmn.Address
	Amount   *uint256.Int
}

// Operation names the contract method a result belongs to.
type Operation string

const (
	OpCreateVestingSchedule Operation = "createVestingSchedule"
	OpInitialTransfer       Operation = "initialTransfer"
)

// Status of a single submission.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// SubmissionResult is the outcome of submitting one record. For the initial
// transfer there is a single result covering the whole batch: Beneficiary is
// zero, Amount is the batch total and Entries the number of receivers.
type SubmissionResult struct {
	Op          Operation
	Index       int
	Beneficiary ethcmn.Address
	Amount      *uint256.Int
	Entries     int
	TxHash      ethcmn.Hash
	BlockNumber uint64
	GasUsed     uint64
	Status      Status
	Err         error
}

// Ledger is the capability set of the external TokenVesting contract bound to
// a single signing identity. Submit methods return once the node accepted the
// transaction; WaitMined blocks until it is included in a block.
type Ledger interface {
	CreateVestingSchedule(ctx context.Context, s Schedule) (*types.Transaction, error)
	InitialTransfer(ctx context.Context, entries []Distribution) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Observer is notified on every status transition of a submission.
type Observer func(SubmissionResult)
