package fees

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
)

// ErrFeeDataUnavailable indicates the network did not report both the
// priority and max-fee components. Building a transaction with a default
// substituted for either risks stuck or overpriced payouts, so this is a
// hard failure for the attempt.
var ErrFeeDataUnavailable = errors.New("fee data unavailable")

// Quote carries the fee parameters a payout transaction must include. A
// quote is fetched fresh per transaction and has no identity beyond the
// request it serves.
type Quote struct {
	GasTipCap *big.Int
	GasFeeCap *big.Int
}

// Check verifies both components are present and non-zero.
func (q Quote) Check() error {
	if q.GasTipCap == nil || q.GasTipCap.Sign() <= 0 {
		return errors.New("quote has no priority fee component")
	}
	if q.GasFeeCap == nil || q.GasFeeCap.Sign() <= 0 {
		return errors.New("quote has no max fee component")
	}
	return nil
}

// Estimator produces the fee quote for the next transaction.
type Estimator interface {
	Current(ctx context.Context) (Quote, error)
}

// ChainReader provides the part of the chain api an Estimator needs.
type ChainReader interface {
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}
