package nonce

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// ErrSequenceUnavailable indicates that the network could not report the
// current sequence state for the signing key. The caller must fail the
// attempt; it must never guess a value.
var ErrSequenceUnavailable = errors.New("sequence state unavailable")

// Sequencer hands out transaction sequence numbers for the relay signing key.
// Any two calls to Next return distinct values, regardless of concurrency.
type Sequencer interface {
	// Next returns the sequence number to be used in the next transaction.
	Next(ctx context.Context) (uint64, error)

	// Resync re-reads sequence state from the network. Call it after a
	// broadcast rejection so a burned allocation can't wedge the sequence.
	Resync(ctx context.Context) error
}

// ChainClient provides the part of the chain api a Sequencer needs.
type ChainClient interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}
