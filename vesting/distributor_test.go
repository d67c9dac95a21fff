package vesting

import (
	"context"
	"errors"
	"math/big"
	"testing"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func elevenReceivers() []Distribution {
	amounts := []uint64{6624000, 6624000, 24012000, 2484000, 0, 0, 193200, 0, 0, 0, 33616800}
	entries := make([]Distribution, len(amounts))
	for i, amount := range amounts {
		entries[i] = Distribution{
			Receiver: ethcmn.BigToAddress(big.NewInt(int64(100 + i))),
			Amount:   uint256.NewInt(amount),
		}
	}
	return entries
}

func TestDistributeSingleCall(t *testing.T) {
	ledger := newMockLedger()
	entries := elevenReceivers()

	res, err := NewDistributor(ledger, testLogger()).Submit(context.Background(), entries)
	require.NoError(t, err)

	require.Len(t, ledger.transfers, 1)
	require.Len(t, ledger.transfers[0], 11)
	require.Equal(t, entries, ledger.transfers[0])
	require.Empty(t, ledger.creates)

	require.Equal(t, StatusConfirmed, res.Status)
	require.Equal(t, OpInitialTransfer, res.Op)
	require.Equal(t, 11, res.Entries)
	require.Equal(t, uint256.NewInt(73554000), res.Amount)
}

func TestDistributeFailsAsUnit(t *testing.T) {
	ledger := newMockLedger()
	ledger.failAt = 0
	ledger.failErr = errors.New("execution reverted: Ownable: caller is not the owner")

	var seen []SubmissionResult
	res, err := NewDistributor(ledger, testLogger(), WithObserver(func(r SubmissionResult) { seen = append(seen, r) })).
		Submit(context.Background(), elevenReceivers())
	require.ErrorIs(t, err, ledger.failErr)
	require.Equal(t, StatusFailed, res.Status)
	require.ErrorIs(t, res.Err, ledger.failErr)
	require.Len(t, ledger.transfers, 1)
	require.Zero(t, ledger.waits)

	require.Len(t, seen, 1)
	require.Equal(t, StatusFailed, seen[0].Status)
}

func TestDistributeReverted(t *testing.T) {
	ledger := newMockLedger()
	ledger.revertAt = 0

	res, err := NewDistributor(ledger, testLogger()).Submit(context.Background(), elevenReceivers())
	require.ErrorIs(t, err, ErrReverted)
	require.Equal(t, StatusFailed, res.Status)
	require.ErrorIs(t, res.Err, ErrReverted)
	require.NotEqual(t, ethcmn.Hash{}, res.TxHash)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	require.Equal(t, StageConfirm, batchErr.Stage)
	require.Equal(t, res.TxHash, batchErr.Result.TxHash)
}

func TestDistributeEmpty(t *testing.T) {
	ledger := newMockLedger()
	res, err := NewDistributor(ledger, testLogger()).Submit(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyBatch)
	require.Equal(t, StatusFailed, res.Status)
	require.Empty(t, ledger.transfers)
}

func TestTotalsSaturate(t *testing.T) {
	top := new(uint256.Int).SetAllOne()
	entries := []Distribution{{Amount: top}, {Amount: uint256.NewInt(1)}}
	require.Equal(t, top, TotalDistributed(entries))

	schedules := []Schedule{{Amount: uint256.NewInt(2)}, {Amount: uint256.NewInt(3)}, {}}
	require.Equal(t, uint256.NewInt(5), TotalScheduled(schedules))
}
