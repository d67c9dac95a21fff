package vesting

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// Distributor sends the whole initial distribution as one initialTransfer
// call, so the batch succeeds or fails as a unit.
type Distributor struct {
	ledger   Ledger
	log      log.Logger
	onResult Observer
}

func NewDistributor(ledger Ledger, logger log.Logger, opts ...Option) *Distributor {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Distributor{
		ledger:   ledger,
		log:      logger,
		onResult: o.onResult,
	}
}

// Submit sends entries in a single transaction and waits for its receipt.
func (d *Distributor) Submit(ctx context.Context, entries []Distribution) (SubmissionResult, error) {
	res := SubmissionResult{
		Op:      OpInitialTransfer,
		Amount:  TotalDistributed(entries),
		Entries: len(entries),
		Status:  StatusPending,
	}
	if len(entries) == 0 {
		err := d.fail(&res, StageSubmit, ErrEmptyBatch)
		return res, err
	}

	d.log.Info("Submitting initial transfer", "receivers", res.Entries, "total", res.Amount)

	tx, err := d.ledger.InitialTransfer(ctx, entries)
	if err != nil {
		err = d.fail(&res, StageSubmit, err)
		return res, err
	}
	res.TxHash = tx.Hash()
	d.notify(res)

	receipt, err := d.ledger.WaitMined(ctx, tx)
	if err == nil && receipt.Status != types.ReceiptStatusSuccessful {
		err = fmt.Errorf("%w: status %d", ErrReverted, receipt.Status)
	}
	if err != nil {
		err = d.fail(&res, StageConfirm, err)
		return res, err
	}

	res.Status = StatusConfirmed
	res.BlockNumber = receipt.BlockNumber.Uint64()
	res.GasUsed = receipt.GasUsed
	d.log.Info("Initial transfer confirmed", "tx", res.TxHash, "block", res.BlockNumber, "gas", res.GasUsed)
	d.notify(res)
	return res, nil
}

// fail marks res as failed in place.
func (d *Distributor) fail(res *SubmissionResult, stage Stage, err error) error {
	res.Status = StatusFailed
	res.Err = err
	d.log.Error("Initial transfer failed", "stage", stage, "tx", res.TxHash, "err", err)
	d.notify(*res)
	return &BatchError{Index: 0, Stage: stage, Result: *res, Err: err}
}

func (d *Distributor) notify(res SubmissionResult) {
	if d.onResult != nil {
		d.onResult(res)
	}
}

// TotalDistributed sums the entry amounts. The sum saturates at 2^256-1,
// which the contract would reject anyway.
func TotalDistributed(entries []Distribution) *uint256.Int {
	total := new(uint256.Int)
	for _, e := range entries {
		if e.Amount == nil {
			continue
		}
		if _, overflow := total.AddOverflow(total, e.Amount); overflow {
			return new(uint256.Int).SetAllOne()
		}
	}
	return total
}

// TotalScheduled sums the schedule amounts, saturating like TotalDistributed.
func TotalScheduled(schedules []Schedule) *uint256.Int {
	total := new(uint256.Int)
	for _, s := range schedules {
		if s.Amount == nil {
			continue
		}
		if _, overflow := total.AddOverflow(total, s.Amount); overflow {
			return new(uint256.Int).SetAllOne()
		}
	}
	return total
}
