package impl

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/rewardlabs/go-rewarder/internal/rewards"
	"github.com/rewardlabs/go-rewarder/pkg/relay"
)

// RewardService relays reward submissions through the relay engine.
type RewardService struct {
	relayer relay.Relayer
}

// NewRewardService creates a RewardService.
func NewRewardService(relayer relay.Relayer) *RewardService {
	return &RewardService{relayer: relayer}
}

// SubmitReward relays a fixed-value payout for the score.
func (s *RewardService) SubmitReward(
	ctx context.Context,
	req rewards.SubmitRewardRequest,
) (rewards.SubmitRewardResponse, error) {
	if !common.IsHexAddress(req.Address) {
		return rewards.SubmitRewardResponse{}, errors.WithMessagef(rewards.ErrInvalidAddress, "%q", req.Address)
	}

	hash, err := s.relayer.Process(ctx, req.Score, common.HexToAddress(req.Address))
	if err != nil {
		return rewards.SubmitRewardResponse{}, errors.WithMessage(err, "processing reward")
	}

	return rewards.SubmitRewardResponse{TxnHash: hash.Hex()}, nil
}

// PendingRewards lists payouts that were broadcast but not yet confirmed.
func (s *RewardService) PendingRewards(_ context.Context) (rewards.PendingRewardsResponse, error) {
	pending := s.relayer.Pending()

	out := make([]rewards.PendingReward, len(pending))
	for i, p := range pending {
		out[i] = rewards.PendingReward{
			TxnHash:   p.Hash.Hex(),
			Nonce:     p.Nonce,
			Score:     p.Score,
			Address:   p.Address.Hex(),
			CreatedAt: p.CreatedAt,
		}
	}

	return rewards.PendingRewardsResponse{Count: len(out), Rewards: out}, nil
}
