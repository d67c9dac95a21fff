package utils

import (
	"math/big"

	ethcmn "github.com/ethereum/go-ethereum/common"
)

// TokenVestingABI is the subset of the TokenVesting contract used by this tool.
const TokenVestingABI = `[
	{"inputs":[{"internalType":"address","name":"_beneficiary","type":"address"},{"internalType":"uint256","name":"_start","type":"uint256"},{"internalType":"uint256","name":"_cliff","type":"uint256"},{"internalType":"uint256","name":"_duration","type":"uint256"},{"internalType":"uint256","name":"_slicePeriodSeconds","type":"uint256"},{"internalType":"bool","name":"_revocable","type":"bool"},{"internalType":"uint256","name":"_amount","type":"uint256"}],"name":"createVestingSchedule","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"components":[{"internalType":"address","name":"receiver","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"internalType":"struct TokenVesting.InitialReceiver[]","name":"_receivers","type":"tuple[]"}],"name":"initialTransfer","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// transferEntry mirrors the InitialReceiver tuple for ABI packing.
type transferEntry struct {
	Receiver ethcmn.Address
	Amount   *big.Int
}
