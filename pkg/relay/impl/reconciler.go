package impl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/rewardlabs/go-rewarder/pkg/relay"
)

// reconcileParallelism bounds concurrent receipt queries in one pass.
const reconcileParallelism = 8

// Reconciler reconciles the pending registry against network ground truth:
// entries with a receipt are confirmed and removed; entries the network no
// longer knows are removed and re-driven through Process under a fresh
// sequence number. A resent payout can double-pay if the original was merely
// slow and later also lands; the relay accepts that risk over missing a
// payout.
type Reconciler struct {
	engine *Engine

	interval time.Duration

	// stuckInterval guards timer-driven passes from racing live watchers:
	// entries younger than it are skipped. Zero disables the guard.
	stuckInterval time.Duration

	resent atomic.Int64
}

// NewReconciler creates a Reconciler over the engine's pending registry.
func NewReconciler(engine *Engine, interval, stuckInterval time.Duration) *Reconciler {
	return &Reconciler{
		engine:        engine,
		interval:      interval,
		stuckInterval: stuckInterval,
	}
}

// Reconcile runs one pass over the current registry snapshot. Entries that
// hit a transient query failure are left in place for the next pass; the
// first such failure is returned after the whole pass completes.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	entries := r.engine.registry.List()
	if len(entries) == 0 {
		return nil
	}

	log.Info().Int("entries", len(entries)).Msg("reconciling pending payouts")

	g := errgroup.Group{}
	g.SetLimit(reconcileParallelism)
	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			return r.reconcileEntry(ctx, entry)
		})
	}
	return g.Wait()
}

// Run reconciles on a timer until ctx is canceled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reconciler closing gracefully")
			return
		case <-ticker.C:
			if err := r.Reconcile(ctx); err != nil {
				log.Error().Err(err).Msg("reconcile pass failed")
			}
		}
	}
}

// ResentCount returns the number of payouts re-driven since process start.
func (r *Reconciler) ResentCount() int64 {
	return r.resent.Load()
}

func (r *Reconciler) reconcileEntry(ctx context.Context, entry relay.PendingReward) error {
	if r.stuckInterval > 0 && time.Since(entry.CreatedAt) < r.stuckInterval {
		return nil
	}

	receipt, err := r.engine.backend.TransactionReceipt(ctx, entry.Hash)
	if err != nil && !errors.Is(err, ethereum.NotFound) {
		// Transient: the entry stays for the next pass.
		return fmt.Errorf("receipt query for %s: %s", entry.Hash.Hex(), err)
	}
	if receipt != nil {
		r.engine.registry.Delete(entry.Hash)
		log.Info().
			Str("hash", entry.Hash.Hex()).
			Uint64("nonce", entry.Nonce).
			Msg("pending payout confirmed during reconciliation")
		return nil
	}

	// The network has no record of the transaction: treat it as lost and
	// resend with a freshly allocated sequence number.
	r.engine.registry.Delete(entry.Hash)
	newHash, err := r.engine.Process(ctx, entry.Score, entry.Address)
	if err != nil {
		// Put the old record back so a later pass retries the resend.
		r.engine.registry.Insert(entry)
		return fmt.Errorf("resending payout for %s: %w", entry.Hash.Hex(), err)
	}

	r.resent.Inc()
	log.Warn().
		Str("oldHash", entry.Hash.Hex()).
		Str("newHash", newHash.Hex()).
		Uint64("score", entry.Score).
		Str("submitter", entry.Address.Hex()).
		Msg("pending payout had no receipt; resent")

	return nil
}
