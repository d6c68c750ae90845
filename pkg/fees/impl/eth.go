package impl

import (
	"context"
	"fmt"
	"math/big"

	"github.com/rewardlabs/go-rewarder/pkg/fees"
)

// EthEstimator derives an EIP-1559 fee quote from the network on every call.
// Quotes are never cached: fee levels are time-sensitive, and a stale quote
// risks either a stuck or an overpriced transaction.
type EthEstimator struct {
	backend fees.ChainReader
}

// NewEthEstimator returns an Estimator backed by an Ethereum node.
func NewEthEstimator(backend fees.ChainReader) *EthEstimator {
	return &EthEstimator{backend: backend}
}

// Current fetches a fresh fee quote. The max fee is twice the head block base
// fee plus the suggested tip, so the quote survives base fee growth for a few
// blocks without repricing.
func (e *EthEstimator) Current(ctx context.Context) (fees.Quote, error) {
	tip, err := e.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return fees.Quote{}, fmt.Errorf("suggest gas tip cap: %s: %w", err, fees.ErrFeeDataUnavailable)
	}
	if tip == nil || tip.Sign() <= 0 {
		return fees.Quote{}, fmt.Errorf("network reported no priority fee: %w", fees.ErrFeeDataUnavailable)
	}

	head, err := e.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return fees.Quote{}, fmt.Errorf("get head header: %s: %w", err, fees.ErrFeeDataUnavailable)
	}
	if head.BaseFee == nil || head.BaseFee.Sign() <= 0 {
		return fees.Quote{}, fmt.Errorf("network reported no base fee: %w", fees.ErrFeeDataUnavailable)
	}

	feeCap := new(big.Int).Add(
		new(big.Int).Mul(head.BaseFee, big.NewInt(2)),
		tip,
	)

	return fees.Quote{GasTipCap: tip, GasFeeCap: feeCap}, nil
}
