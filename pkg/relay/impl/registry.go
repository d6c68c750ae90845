package impl

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rewardlabs/go-rewarder/pkg/relay"
)

// PendingRegistry maps transaction hashes to payouts that were broadcast but
// not yet confirmed. The engine inserts, confirmation watchers delete on
// inclusion, and the reconciler deletes and re-drives; all mutations are
// mutually exclusive. Lifetime is the process lifetime: entries do not
// survive a restart.
type PendingRegistry struct {
	mu      sync.Mutex
	rewards map[common.Hash]relay.PendingReward
}

// NewPendingRegistry returns an empty registry.
func NewPendingRegistry() *PendingRegistry {
	return &PendingRegistry{rewards: map[common.Hash]relay.PendingReward{}}
}

// Insert records a broadcast payout under its transaction hash.
func (r *PendingRegistry) Insert(p relay.PendingReward) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rewards[p.Hash] = p
}

// Delete removes the entry for hash, if present.
func (r *PendingRegistry) Delete(hash common.Hash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rewards, hash)
}

// Get returns the entry for hash.
func (r *PendingRegistry) Get(hash common.Hash) (relay.PendingReward, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rewards[hash]
	return p, ok
}

// List returns a snapshot of all entries.
func (r *PendingRegistry) List() []relay.PendingReward {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]relay.PendingReward, 0, len(r.rewards))
	for _, p := range r.rewards {
		out = append(out, p)
	}
	return out
}

// Count returns the number of entries.
func (r *PendingRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rewards)
}
