package utils

import (
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/okx/vesting/vesting"
)

const testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	// STOP: every call succeeds
	acceptCode = []byte{0x00}
	// PUSH1 0 PUSH1 0 REVERT: every call reverts without data
	revertCode = []byte{0x60, 0x00, 0x60, 0x00, 0xfd}

	acceptAddr = ethcmn.HexToAddress("0x00000000000000000000000000000000000a11ce")
	revertAddr = ethcmn.HexToAddress("0x000000000000000000000000000000000000dead")
)

// autoMiner seals a block after every sent transaction, like an automining
// devnet node.
type autoMiner struct {
	simulated.Client
	backend *simulated.Backend
}

func (m *autoMiner) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := m.Client.SendTransaction(ctx, tx); err != nil {
		return err
	}
	m.backend.Commit()
	return nil
}

func (m *autoMiner) ChainID(context.Context) (*big.Int, error) {
	return params.AllDevChainProtocolChanges.ChainID, nil
}

func newSimulatedLedger(t *testing.T, contract ethcmn.Address, gasLimit uint64) (*EthLedger, *autoMiner) {
	t.Helper()
	key, err := ParsePrivateKey(testPrivateKey)
	require.NoError(t, err)

	balance := new(big.Int).Mul(big.NewInt(1000), big.NewInt(params.Ether))
	backend := simulated.NewBackend(types.GenesisAlloc{
		GetEthAddressFromPK(key): {Balance: balance},
		acceptAddr:               {Code: acceptCode, Balance: new(big.Int)},
		revertAddr:               {Code: revertCode, Balance: new(big.Int)},
	})
	t.Cleanup(func() { _ = backend.Close() })

	client := &autoMiner{Client: backend.Client(), backend: backend}
	ledger, err := NewEthLedger(context.Background(), client, LedgerConfig{
		Contract:       contract,
		PrivateKey:     key,
		GasLimit:       gasLimit,
		ConfirmTimeout: 10 * time.Second,
	}, log.NewLogger(log.DiscardHandler()))
	require.NoError(t, err)
	return ledger, client
}

func tokenVestingABI(t *testing.T) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(TokenVestingABI))
	require.NoError(t, err)
	return parsed
}

func TestEthLedgerCreateVestingSchedule(t *testing.T) {
	ledger, _ := newSimulatedLedger(t, acceptAddr, 300000)
	ctx := context.Background()

	sched := vesting.Schedule{
		Beneficiary:        ethcmn.HexToAddress("0x1cf5CB74FfD10d39f6737136145aCBdD76649041"),
		Start:              1707868800,
		Cliff:              2592000,
		Duration:           25920000,
		SlicePeriodSeconds: 2592000,
		Revocable:          true,
		Amount:             uint256.NewInt(76176000),
	}
	tx, err := ledger.CreateVestingSchedule(ctx, sched)
	require.NoError(t, err)
	require.Equal(t, acceptAddr, *tx.To())

	receipt, err := ledger.WaitMined(ctx, tx)
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	method := tokenVestingABI(t).Methods["createVestingSchedule"]
	require.Equal(t, method.ID, tx.Data()[:4])
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	require.Equal(t, sched.Beneficiary, args[0].(ethcmn.Address))
	require.Equal(t, big.NewInt(1707868800), args[1].(*big.Int))
	require.Equal(t, big.NewInt(2592000), args[2].(*big.Int))
	require.Equal(t, big.NewInt(25920000), args[3].(*big.Int))
	require.Equal(t, big.NewInt(2592000), args[4].(*big.Int))
	require.Equal(t, true, args[5].(bool))
	require.Equal(t, big.NewInt(76176000), args[6].(*big.Int))
}

func TestEthLedgerSequentialNonces(t *testing.T) {
	ledger, _ := newSimulatedLedger(t, acceptAddr, 300000)
	ctx := context.Background()

	for i := uint64(0); i < 3; i++ {
		tx, err := ledger.CreateVestingSchedule(ctx, vesting.Schedule{
			Beneficiary:        ethcmn.BigToAddress(big.NewInt(int64(i + 1))),
			Duration:           1,
			SlicePeriodSeconds: 1,
			Amount:             uint256.NewInt(i),
		})
		require.NoError(t, err)
		require.Equal(t, i, tx.Nonce())
		_, err = ledger.WaitMined(ctx, tx)
		require.NoError(t, err)
	}
}

func TestEthLedgerInitialTransfer(t *testing.T) {
	ledger, _ := newSimulatedLedger(t, acceptAddr, 1000000)
	ctx := context.Background()

	entries := make([]vesting.Distribution, 11)
	for i := range entries {
		entries[i] = vesting.Distribution{
			Receiver: ethcmn.BigToAddress(big.NewInt(int64(0x100 + i))),
			Amount:   uint256.NewInt(uint64(i) * 1000),
		}
	}
	tx, err := ledger.InitialTransfer(ctx, entries)
	require.NoError(t, err)
	_, err = ledger.WaitMined(ctx, tx)
	require.NoError(t, err)

	method := tokenVestingABI(t).Methods["initialTransfer"]
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	decoded := *abi.ConvertType(args[0], new([]transferEntry)).(*[]transferEntry)
	require.Len(t, decoded, 11)
	for i, e := range decoded {
		require.Equal(t, entries[i].Receiver, e.Receiver)
		require.Zero(t, entries[i].Amount.ToBig().Cmp(e.Amount), "entry %d", i)
	}
}

func TestEthLedgerRevertedReceipt(t *testing.T) {
	// fixed gas limit skips estimation, so the revert happens on chain
	ledger, _ := newSimulatedLedger(t, revertAddr, 300000)
	ctx := context.Background()

	tx, err := ledger.CreateVestingSchedule(ctx, vesting.Schedule{Duration: 1, SlicePeriodSeconds: 1, Amount: uint256.NewInt(1)})
	require.NoError(t, err)

	receipt, err := ledger.WaitMined(ctx, tx)
	require.ErrorIs(t, err, vesting.ErrReverted)
	require.NotNil(t, receipt)
	require.Equal(t, types.ReceiptStatusFailed, receipt.Status)
}

func TestEthLedgerEstimationRejects(t *testing.T) {
	ledger, _ := newSimulatedLedger(t, revertAddr, 0)

	_, err := ledger.CreateVestingSchedule(context.Background(), vesting.Schedule{Duration: 1, SlicePeriodSeconds: 1, Amount: uint256.NewInt(1)})
	require.Error(t, err)
	require.Contains(t, err.Error(), "createVestingSchedule")
}

func TestEthLedgerWithSubmitter(t *testing.T) {
	ledger, client := newSimulatedLedger(t, acceptAddr, 300000)
	ctx := context.Background()

	schedules := []vesting.Schedule{
		{Beneficiary: ethcmn.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"), Duration: 12960000, SlicePeriodSeconds: 2592000, Revocable: true, Amount: uint256.NewInt(48576000)},
		{Beneficiary: ethcmn.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"), Duration: 7776000, SlicePeriodSeconds: 2592000, Revocable: true, Amount: uint256.NewInt(96048000)},
	}
	results, err := vesting.NewScheduleSubmitter(ledger, log.NewLogger(log.DiscardHandler())).Submit(ctx, schedules)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Less(t, results[0].BlockNumber, results[1].BlockNumber)

	head, err := client.BlockNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, results[1].BlockNumber, head)
}

func TestNewEthLedgerValidation(t *testing.T) {
	key, err := ParsePrivateKey(testPrivateKey)
	require.NoError(t, err)
	logger := log.NewLogger(log.DiscardHandler())

	_, err = NewEthLedger(context.Background(), nil, LedgerConfig{Contract: acceptAddr}, logger)
	require.ErrorContains(t, err, "private key")

	_, err = NewEthLedger(context.Background(), nil, LedgerConfig{PrivateKey: key}, logger)
	require.ErrorContains(t, err, "contract address")
}
