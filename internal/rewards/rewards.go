package rewards

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidAddress indicates the submitted destination is not a valid hex
// address.
var ErrInvalidAddress = errors.New("invalid address")

// SubmitRewardRequest is a reward submission for a game score.
type SubmitRewardRequest struct {
	Score   uint64 `json:"score"`
	Address string `json:"address"`
}

// SubmitRewardResponse carries the hash of the broadcast payout transaction.
type SubmitRewardResponse struct {
	TxnHash string `json:"txnHash"`
}

// PendingReward describes one broadcast, unconfirmed payout.
type PendingReward struct {
	TxnHash   string    `json:"txnHash"`
	Nonce     uint64    `json:"nonce"`
	Score     uint64    `json:"score"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

// PendingRewardsResponse is a snapshot of the pending payouts.
type PendingRewardsResponse struct {
	Count   int             `json:"count"`
	Rewards []PendingReward `json:"rewards"`
}

// Service is the reward relay api surface.
type Service interface {
	// SubmitReward relays a fixed-value payout for the score. It returns
	// once the transaction is broadcast, not once it is confirmed.
	SubmitReward(ctx context.Context, req SubmitRewardRequest) (SubmitRewardResponse, error)

	// PendingRewards lists payouts that were broadcast but not yet confirmed.
	PendingRewards(ctx context.Context) (PendingRewardsResponse, error)
}
