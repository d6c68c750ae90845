package impl

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/rewardlabs/go-rewarder/pkg/nonce"
	"github.com/rewardlabs/go-rewarder/pkg/wallet"
)

func TestNextAllocatesDistinctValues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	chain := &chainClientMock{nonce: 10}
	sequencer := NewLocalSequencer(testWallet(t), chain)

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[uint64]struct{}{}

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			n, err := sequencer.Next(ctx)
			require.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()
			_, dup := seen[n]
			require.False(t, dup)
			seen[n] = struct{}{}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers)
	for n := uint64(10); n < 10+workers; n++ {
		require.Contains(t, seen, n)
	}
	require.Equal(t, 1, chain.callCount())
}

func TestNextFailsWhenNetworkUnavailable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	chain := &chainClientMock{nonce: 10, err: errors.New("connection refused")}
	sequencer := NewLocalSequencer(testWallet(t), chain)

	_, err := sequencer.Next(ctx)
	require.ErrorIs(t, err, nonce.ErrSequenceUnavailable)

	// The failed sync left the sequencer unsynced; once the network is
	// back the next allocation retries it.
	chain.setErr(nil)
	n, err := sequencer.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(10), n)
}

func TestResyncReReadsNetworkState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	chain := &chainClientMock{nonce: 10}
	sequencer := NewLocalSequencer(testWallet(t), chain)

	n, err := sequencer.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(10), n)
	n, err = sequencer.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(11), n)

	chain.setNonce(20)
	require.NoError(t, sequencer.Resync(ctx))

	n, err = sequencer.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(20), n)
}

func testWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	w, err := wallet.NewWallet(hex.EncodeToString(crypto.FromECDSA(key)))
	require.NoError(t, err)
	return w
}

type chainClientMock struct {
	mu    sync.Mutex
	nonce uint64
	err   error
	calls int
}

func (m *chainClientMock) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.nonce, nil
}

func (m *chainClientMock) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *chainClientMock) setNonce(n uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonce = n
}

func (m *chainClientMock) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
