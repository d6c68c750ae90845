package impl

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/rewardlabs/go-rewarder/pkg/fees"
	"github.com/rewardlabs/go-rewarder/pkg/wallet"
)

// PayoutBuilder composes and signs payout transfers. Value and gas limit are
// fixed policy; only the sequence number, fee quote and destination vary per
// transaction. Building mutates nothing: it yields a broadcast-ready artifact.
type PayoutBuilder struct {
	wallet   *wallet.Wallet
	chainID  *big.Int
	amount   *big.Int
	gasLimit uint64
	signer   types.Signer
}

// NewPayoutBuilder creates a builder signing with the wallet key for chainID.
func NewPayoutBuilder(w *wallet.Wallet, chainID *big.Int, amount *big.Int, gasLimit uint64) *PayoutBuilder {
	return &PayoutBuilder{
		wallet:   w,
		chainID:  chainID,
		amount:   amount,
		gasLimit: gasLimit,
		signer:   types.NewLondonSigner(chainID),
	}
}

// Build returns a signed transfer of the fixed amount to the destination,
// carrying the given sequence number and fee quote.
func (b *PayoutBuilder) Build(sequence uint64, quote fees.Quote, to common.Address) (*types.Transaction, error) {
	if err := quote.Check(); err != nil {
		return nil, fmt.Errorf("fee quote: %s: %w", err, fees.ErrFeeDataUnavailable)
	}

	txn := types.NewTx(&types.DynamicFeeTx{
		ChainID:   b.chainID,
		Nonce:     sequence,
		GasTipCap: quote.GasTipCap,
		GasFeeCap: quote.GasFeeCap,
		Gas:       b.gasLimit,
		To:        &to,
		Value:     b.amount,
	})

	signed, err := types.SignTx(txn, b.signer, b.wallet.PrivateKey())
	if err != nil {
		return nil, fmt.Errorf("signing txn: %s", err)
	}
	return signed, nil
}
