package impl

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/rewardlabs/go-rewarder/pkg/relay"
)

// Broadcaster submits signed transactions to the network. On success the
// returned hash is immediately queryable for a receipt (which may be pending).
type Broadcaster struct {
	backend relay.ChainBackend
}

// NewBroadcaster returns a Broadcaster over the backend.
func NewBroadcaster(backend relay.ChainBackend) *Broadcaster {
	return &Broadcaster{backend: backend}
}

// Send submits the signed transaction and returns its hash.
func (b *Broadcaster) Send(ctx context.Context, txn *types.Transaction) (common.Hash, error) {
	if err := b.backend.SendTransaction(ctx, txn); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %s: %w", err, relay.ErrBroadcastRejected)
	}
	return txn.Hash(), nil
}
