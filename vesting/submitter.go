package vesting

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/time/rate"
)

// ScheduleSubmitter creates one vesting schedule per record, strictly in input
// order. Each transaction must be confirmed before the next one is sent, and
// the first failure halts the batch. There is no rollback of records already
// confirmed, no retry and no duplicate detection: running the same table twice
// creates every schedule twice.
type ScheduleSubmitter struct {
	ledger   Ledger
	log      log.Logger
	limiter  *rate.Limiter
	onResult Observer
	offset   int
}

// Option configures a ScheduleSubmitter or a Distributor.
type Option func(*options)

type options struct {
	limiter  *rate.Limiter
	onResult Observer
	offset   int
}

// WithLimiter paces submissions. The limiter only delays, it never reorders.
func WithLimiter(l *rate.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithObserver registers fn for every status transition.
func WithObserver(fn Observer) Option {
	return func(o *options) { o.onResult = fn }
}

// WithIndexOffset shifts reported indices, for a table the operator truncated
// to continue after a partial run.
func WithIndexOffset(n int) Option {
	return func(o *options) { o.offset = n }
}

func NewScheduleSubmitter(ledger Ledger, logger log.Logger, opts ...Option) *ScheduleSubmitter {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &ScheduleSubmitter{
		ledger:   ledger,
		log:      logger,
		limiter:  o.limiter,
		onResult: o.onResult,
		offset:   o.offset,
	}
}

// Submit returns the confirmed results in input order. On failure the results
// confirmed so far are returned together with a *BatchError.
func (s *ScheduleSubmitter) Submit(ctx context.Context, schedules []Schedule) ([]SubmissionResult, error) {
	results := make([]SubmissionResult, 0, len(schedules))

	for i, sched := range schedules {
		res := SubmissionResult{
			Op:          OpCreateVestingSchedule,
			Index:       s.offset + i,
			Beneficiary: sched.Beneficiary,
			Amount:      sched.Amount,
			Status:      StatusPending,
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return results, s.fail(&res, StageSubmit, err)
			}
		}

		s.log.Info("Submitting vesting schedule", "index", res.Index, "beneficiary", sched.Beneficiary,
			"start", sched.Start, "cliff", sched.Cliff, "duration", sched.Duration,
			"slice", sched.SlicePeriodSeconds, "revocable", sched.Revocable, "amount", sched.Amount)

		tx, err := s.ledger.CreateVestingSchedule(ctx, sched)
		if err != nil {
			return results, s.fail(&res, StageSubmit, err)
		}
		res.TxHash = tx.Hash()
		s.notify(res)

		receipt, err := s.ledger.WaitMined(ctx, tx)
		if err == nil && receipt.Status != types.ReceiptStatusSuccessful {
			err = fmt.Errorf("%w: status %d", ErrReverted, receipt.Status)
		}
		if err != nil {
			return results, s.fail(&res, StageConfirm, err)
		}

		res.Status = StatusConfirmed
		res.BlockNumber = receipt.BlockNumber.Uint64()
		res.GasUsed = receipt.GasUsed
		s.log.Info("Vesting schedule confirmed", "index", res.Index, "beneficiary", sched.Beneficiary,
			"tx", res.TxHash, "block", res.BlockNumber, "gas", res.GasUsed)
		s.notify(res)

		results = append(results, res)
	}

	return results, nil
}

// fail marks res as failed in place.
func (s *ScheduleSubmitter) fail(res *SubmissionResult, stage Stage, err error) error {
	res.Status = StatusFailed
	res.Err = err
	s.log.Error("Vesting schedule failed, halting batch", "index", res.Index, "beneficiary", res.Beneficiary,
		"stage", stage, "tx", res.TxHash, "err", err)
	s.notify(*res)
	return &BatchError{Index: res.Index, Stage: stage, Result: *res, Err: err}
}

func (s *ScheduleSubmitter) notify(res SubmissionResult) {
	if s.onResult != nil {
		s.onResult(res)
	}
}
