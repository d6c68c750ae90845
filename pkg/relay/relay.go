package relay

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrBroadcastRejected indicates the network refused the signed transaction
// (stale nonce, insufficient funds, malformed payload). The attempt fails and
// the rejection reason is surfaced to the caller.
var ErrBroadcastRejected = errors.New("broadcast rejected")

// PendingReward is the in-memory record of a payout that was broadcast but
// not yet confirmed. The submitter address is bookkeeping only; the transfer
// destination is always the operator custody address.
type PendingReward struct {
	Hash      common.Hash
	Nonce     uint64
	Score     uint64
	Address   common.Address
	CreatedAt time.Time
}

// Relayer issues fixed-value payout transactions on behalf of score
// submitters. Process returns as soon as broadcast succeeds or fails; it
// never blocks the caller on confirmation.
type Relayer interface {
	Process(ctx context.Context, score uint64, address common.Address) (common.Hash, error)

	// PendingCount returns the number of broadcast, unconfirmed payouts.
	PendingCount() int

	// Pending returns a snapshot of the broadcast, unconfirmed payouts.
	Pending() []PendingReward
}

// ChainBackend provides the chain capability surface the relay engine needs.
// *ethclient.Client satisfies it.
type ChainBackend interface {
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}
