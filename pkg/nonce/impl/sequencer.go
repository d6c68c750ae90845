package impl

import (
	"context"
	"fmt"
	"sync"

	logger "github.com/rs/zerolog/log"

	"github.com/rewardlabs/go-rewarder/pkg/nonce"
	"github.com/rewardlabs/go-rewarder/pkg/wallet"
)

var log = logger.With().Str("component", "nonce").Logger()

// LocalSequencer serializes allocation of sequence numbers for the signing
// key. The read-then-increment step runs inside a single critical section so
// no two callers can observe the same value. Network state is read lazily on
// the first allocation and again on Resync; a failed read leaves the
// sequencer unsynced so the next allocation retries it.
type LocalSequencer struct {
	mu     sync.Mutex
	next   uint64
	synced bool

	wallet      *wallet.Wallet
	chainClient nonce.ChainClient
}

// NewLocalSequencer creates a sequencer for the wallet's signing key.
func NewLocalSequencer(w *wallet.Wallet, chainClient nonce.ChainClient) *LocalSequencer {
	return &LocalSequencer{
		wallet:      w,
		chainClient: chainClient,
	}
}

// Next returns the sequence number to be used in the next transaction.
func (s *LocalSequencer) Next(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.synced {
		if err := s.syncLocked(ctx); err != nil {
			return 0, err
		}
	}

	n := s.next
	s.next++
	return n, nil
}

// Resync re-reads the pending nonce from the network.
func (s *LocalSequencer) Resync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncLocked(ctx)
}

func (s *LocalSequencer) syncLocked(ctx context.Context) error {
	networkNonce, err := s.chainClient.PendingNonceAt(ctx, s.wallet.Address())
	if err != nil {
		s.synced = false
		return fmt.Errorf("pending nonce at: %s: %w", err, nonce.ErrSequenceUnavailable)
	}

	log.Debug().
		Str("wallet", s.wallet.String()).
		Uint64("networkNonce", networkNonce).
		Msg("sequence state synced")

	s.next = networkNonce
	s.synced = true
	return nil
}
