// Package admin runs the vesting operations end to end: it validates the
// table, connects the signer and journals every result.
package admin

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/time/rate"

	"github.com/okx/vesting/config"
	"github.com/okx/vesting/utils"
	"github.com/okx/vesting/vesting"
)

// Report is what a run leaves behind.
type Report struct {
	RunID   string
	Planned int
	Results []vesting.SubmissionResult
}

// Connect dials the node and binds the TokenVesting contract to the
// configured signer. The returned func closes the node connection.
func Connect(ctx context.Context, cfg *config.Config, logger log.Logger) (*utils.EthLedger, func(), error) {
	if err := cfg.ValidateNetwork(); err != nil {
		return nil, nil, err
	}

	key, err := utils.ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, nil, err
	}
	contract, err := config.ParseAddress(cfg.TokenVestingAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("tokenVestingAddress: %w", err)
	}

	client, err := utils.Dial(ctx, cfg.Rpc)
	if err != nil {
		return nil, nil, err
	}

	var chainID *big.Int
	if cfg.ChainID != 0 {
		chainID = new(big.Int).SetUint64(cfg.ChainID)
	}

	ledger, err := utils.NewEthLedger(ctx, client, utils.LedgerConfig{
		Contract:       contract,
		PrivateKey:     key,
		ChainID:        chainID,
		GasPrice:       utils.ParseGasPriceToBigInt(cfg.GasPriceGwei),
		GasLimit:       cfg.GasLimit,
		ConfirmTimeout: cfg.ConfirmTimeout,
	}, logger)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	logger.Info("Connected", "rpc", cfg.Rpc, "contract", contract, "signer", ledger.Signer())
	return ledger, client.Close, nil
}

// ValidateTable checks both lists and the contract address without touching
// the network. Every problem is reported in one *config.ValidationError.
func ValidateTable(cfg *config.Config) ([]vesting.Schedule, []vesting.Distribution, error) {
	verr := &config.ValidationError{}

	schedules, err := cfg.Schedules()
	collect(verr, err)
	entries, err := cfg.Distributions()
	collect(verr, err)
	if _, err := config.ParseAddress(cfg.TokenVestingAddress); err != nil {
		verr.Problems = append(verr.Problems, "tokenVestingAddress: "+err.Error())
	}

	if len(verr.Problems) > 0 {
		return nil, nil, verr
	}
	return schedules, entries, nil
}

func collect(verr *config.ValidationError, err error) {
	if err == nil {
		return
	}
	var v *config.ValidationError
	if errors.As(err, &v) {
		verr.Problems = append(verr.Problems, v.Problems...)
		return
	}
	verr.Problems = append(verr.Problems, err.Error())
}

// PlanSchedules validates the beneficiary table and drops the rows before
// fromIndex, which an earlier run already confirmed.
func PlanSchedules(cfg *config.Config, fromIndex int, logger log.Logger) ([]vesting.Schedule, error) {
	schedules, err := cfg.Schedules()
	if err != nil {
		return nil, err
	}
	if fromIndex < 0 || fromIndex > len(schedules) {
		return nil, fmt.Errorf("--from-index %d out of range [0, %d]", fromIndex, len(schedules))
	}

	for _, addr := range config.DuplicateBeneficiaries(schedules) {
		logger.Warn("Beneficiary listed more than once, each row creates its own schedule", "beneficiary", addr)
	}
	if fromIndex > 0 {
		logger.Warn("Skipping rows already handled", "skipped", fromIndex, "remaining", len(schedules)-fromIndex)
	}
	return schedules[fromIndex:], nil
}

// RunCreateSchedules submits the beneficiary table from fromIndex on,
// journaling every transition. On failure the report still holds the
// confirmed results and the error is a *vesting.BatchError with the absolute
// table index of the failing row.
func RunCreateSchedules(ctx context.Context, cfg *config.Config, ledger vesting.Ledger, logger log.Logger, fromIndex int) (*Report, error) {
	schedules, err := PlanSchedules(cfg, fromIndex, logger)
	if err != nil {
		return nil, err
	}

	journal, err := openJournal(cfg)
	if err != nil {
		return nil, err
	}
	defer journal.Close()

	opts := []vesting.Option{
		vesting.WithObserver(recorder(journal, logger)),
		vesting.WithIndexOffset(fromIndex),
	}
	if cfg.SubmitInterval > 0 {
		opts = append(opts, vesting.WithLimiter(rate.NewLimiter(rate.Every(cfg.SubmitInterval), 1)))
	}

	logger.Info("Creating vesting schedules", "run", journal.RunID(), "count", len(schedules),
		"total", vesting.TotalScheduled(schedules), "journal", journalPath(cfg))

	results, err := vesting.NewScheduleSubmitter(ledger, logger, opts...).Submit(ctx, schedules)
	report := &Report{RunID: journal.RunID(), Planned: len(schedules), Results: results}
	if err != nil {
		var batchErr *vesting.BatchError
		if errors.As(err, &batchErr) {
			logger.Error("Batch halted", "confirmed", len(results), "failedIndex", batchErr.Index,
				"hint", ContinueHint(batchErr))
		}
		return report, err
	}

	logger.Info("All vesting schedules created", "run", journal.RunID(), "confirmed", len(results))
	return report, nil
}

// ContinueHint tells the operator how to go on after a halted batch. A
// transaction that was sent but not confirmed may still be mined, so its row
// must be checked on chain before it is sent again.
func ContinueHint(batchErr *vesting.BatchError) string {
	idx := batchErr.Index
	if batchErr.Stage == vesting.StageConfirm && batchErr.Result.TxHash != (ethcmn.Hash{}) {
		return fmt.Sprintf("check tx %s on chain first: if it was mined rerun with --from-index %d, otherwise fix row %d and rerun with --from-index %d",
			batchErr.Result.TxHash.Hex(), idx+1, idx, idx)
	}
	return fmt.Sprintf("fix row %d and rerun with --from-index %d", idx, idx)
}

// RunInitialTransfer sends the initial distribution as one transaction.
func RunInitialTransfer(ctx context.Context, cfg *config.Config, ledger vesting.Ledger, logger log.Logger) (*Report, error) {
	entries, err := cfg.Distributions()
	if err != nil {
		return nil, err
	}

	journal, err := openJournal(cfg)
	if err != nil {
		return nil, err
	}
	defer journal.Close()

	logger.Info("Sending initial transfer", "run", journal.RunID(), "receivers", len(entries),
		"total", vesting.TotalDistributed(entries), "journal", journalPath(cfg))

	res, err := vesting.NewDistributor(ledger, logger, vesting.WithObserver(recorder(journal, logger))).Submit(ctx, entries)
	return &Report{RunID: journal.RunID(), Planned: 1, Results: []vesting.SubmissionResult{res}}, err
}

func journalPath(cfg *config.Config) string {
	if cfg.JournalPath == "" {
		return config.DefaultJournalPath
	}
	return cfg.JournalPath
}

func openJournal(cfg *config.Config) (*utils.Journal, error) {
	return utils.OpenJournal(journalPath(cfg))
}

// recorder journals a result. A failed journal write is logged and the batch
// goes on.
func recorder(journal *utils.Journal, logger log.Logger) vesting.Observer {
	return func(res vesting.SubmissionResult) {
		if err := journal.Record(res); err != nil {
			logger.Error("Failed to write journal", "index", res.Index, "status", res.Status, "tx", res.TxHash, "err", err)
		}
	}
}
