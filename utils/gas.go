package utils

import (
	"math/big"
)

var weiPerGwei = new(big.Float).SetInt64(1000000000)

// ParseGasPriceToBigInt converts a gas price in gwei to wei. Zero or negative
// input returns nil, which leaves pricing to the node.
func ParseGasPriceToBigInt(gasPriceGwei float64) *big.Int {
	if gasPriceGwei <= 0 {
		return nil
	}
	wei, _ := new(big.Float).Mul(big.NewFloat(gasPriceGwei), weiPerGwei).Int(nil)
	if wei.Sign() <= 0 {
		return nil
	}
	return wei
}
