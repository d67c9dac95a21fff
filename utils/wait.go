package utils

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/okx/vesting/vesting"
)

type ethClienter interface {
	ethereum.ContractCaller
	bind.DeployBackend
}

// WaitTxToBeMined waits until tx has been mined or the given timeout expires.
// A mined transaction with a failed status is reported as vesting.ErrReverted
// together with the revert reason.
func WaitTxToBeMined(parentCtx context.Context, client ethClienter, from ethcmn.Address, tx *types.Transaction, timeout time.Duration) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	receipt, err := bind.WaitMined(ctx, client, tx)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("tx %s not mined within %v: %w", tx.Hash(), timeout, err)
	} else if err != nil {
		return nil, fmt.Errorf("error waiting tx %s to be mined: %w", tx.Hash(), err)
	}

	if receipt.Status == types.ReceiptStatusFailed {
		reason, reasonErr := RevertReason(parentCtx, client, from, tx, receipt.BlockNumber)
		if reasonErr != nil {
			reason = reasonErr.Error()
		}
		return receipt, fmt.Errorf("%w: tx %s in block %v, reason: %s", vesting.ErrReverted, tx.Hash(), receipt.BlockNumber, reason)
	}
	return receipt, nil
}

// RevertReason replays tx against the state it was executed on and decodes
// the Error(string) payload.
func RevertReason(ctx context.Context, c ethereum.ContractCaller, from ethcmn.Address, tx *types.Transaction, blockNumber *big.Int) (string, error) {
	if tx == nil {
		return "", nil
	}

	msg := ethereum.CallMsg{
		From:  from,
		To:    tx.To(),
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}

	var parent *big.Int
	if blockNumber != nil && blockNumber.Sign() > 0 {
		parent = new(big.Int).Sub(blockNumber, big.NewInt(1))
	}

	out, err := c.CallContract(ctx, msg, parent)
	if err != nil {
		var dataErr rpc.DataError
		if errors.As(err, &dataErr) {
			if hexData, ok := dataErr.ErrorData().(string); ok {
				out = ethcmn.FromHex(hexData)
			}
		}
		if len(out) == 0 {
			return err.Error(), nil
		}
	}

	reason, err := abi.UnpackRevert(out)
	if err != nil {
		return "execution reverted", nil
	}
	return reason, nil
}
