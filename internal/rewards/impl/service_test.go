package impl

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rewardlabs/go-rewarder/internal/rewards"
	"github.com/rewardlabs/go-rewarder/pkg/relay"
)

func TestSubmitReward(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	relayer := &relayerMock{hash: common.HexToHash("0xdeadbeef")}
	svc := NewRewardService(relayer)

	resp, err := svc.SubmitReward(ctx, rewards.SubmitRewardRequest{
		Score:   42,
		Address: "0xB2Fd1652BFc0DF47a4d75f1F33Dd9A2EE9c85b99",
	})
	require.NoError(t, err)
	require.Equal(t, relayer.hash.Hex(), resp.TxnHash)
	require.Equal(t, uint64(42), relayer.lastScore)
	require.Equal(t, common.HexToAddress("0xB2Fd1652BFc0DF47a4d75f1F33Dd9A2EE9c85b99"), relayer.lastAddress)
}

func TestSubmitRewardInvalidAddress(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := NewRewardService(&relayerMock{})
	for _, address := range []string{"", "not-an-address", "0x123"} {
		_, err := svc.SubmitReward(ctx, rewards.SubmitRewardRequest{Score: 1, Address: address})
		require.ErrorIs(t, err, rewards.ErrInvalidAddress)
	}
}

func TestSubmitRewardRelayFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := NewRewardService(&relayerMock{err: relay.ErrBroadcastRejected})
	_, err := svc.SubmitReward(ctx, rewards.SubmitRewardRequest{
		Score:   1,
		Address: "0xB2Fd1652BFc0DF47a4d75f1F33Dd9A2EE9c85b99",
	})
	require.ErrorIs(t, err, relay.ErrBroadcastRejected)
}

func TestPendingRewards(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	created := time.Now()
	relayer := &relayerMock{pending: []relay.PendingReward{
		{
			Hash:      common.HexToHash("0x01"),
			Nonce:     7,
			Score:     42,
			Address:   common.HexToAddress("0xB2Fd1652BFc0DF47a4d75f1F33Dd9A2EE9c85b99"),
			CreatedAt: created,
		},
	}}
	svc := NewRewardService(relayer)

	resp, err := svc.PendingRewards(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	require.Len(t, resp.Rewards, 1)
	require.Equal(t, common.HexToHash("0x01").Hex(), resp.Rewards[0].TxnHash)
	require.Equal(t, uint64(7), resp.Rewards[0].Nonce)
	require.Equal(t, uint64(42), resp.Rewards[0].Score)
	require.Equal(t, created, resp.Rewards[0].CreatedAt)
}

type relayerMock struct {
	hash    common.Hash
	err     error
	pending []relay.PendingReward

	lastScore   uint64
	lastAddress common.Address
}

func (m *relayerMock) Process(_ context.Context, score uint64, address common.Address) (common.Hash, error) {
	if m.err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", m.err)
	}
	m.lastScore = score
	m.lastAddress = address
	return m.hash, nil
}

func (m *relayerMock) PendingCount() int {
	return len(m.pending)
}

func (m *relayerMock) Pending() []relay.PendingReward {
	return m.pending
}
