package controllers

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/rewardlabs/go-rewarder/buildinfo"
	"github.com/rewardlabs/go-rewarder/internal/rewards"
	serviceerr "github.com/rewardlabs/go-rewarder/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RewardController defines the HTTP handlers for submitting and inspecting
// reward payouts.
type RewardController struct {
	svc rewards.Service
}

// NewRewardController creates a new RewardController.
func NewRewardController(svc rewards.Service) *RewardController {
	return &RewardController{svc: svc}
}

// SubmitReward handles POST /api/v1/rewards. It validates the payload, relays
// the payout and returns the broadcast transaction hash.
func (c *RewardController) SubmitReward(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rw.Header().Set("Content-Type", "application/json")

	var req rewards.SubmitRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.WriteHeader(http.StatusBadRequest)
		log.Ctx(ctx).Error().Err(err).Msg("invalid reward request body")
		_ = json.NewEncoder(rw).Encode(serviceerr.ServiceError{Message: "Invalid request body"})
		return
	}

	resp, err := c.svc.SubmitReward(ctx, req)
	if err != nil {
		if errors.Is(err, rewards.ErrInvalidAddress) {
			rw.WriteHeader(http.StatusBadRequest)
			log.Ctx(ctx).Error().Err(err).Msg("invalid reward address")
			_ = json.NewEncoder(rw).Encode(serviceerr.ServiceError{Message: "Invalid address"})
			return
		}

		rw.WriteHeader(http.StatusBadGateway)
		log.Ctx(ctx).Error().Err(err).Uint64("score", req.Score).Msg("relaying reward failed")
		_ = json.NewEncoder(rw).Encode(serviceerr.ServiceError{Message: "Relaying the reward failed"})
		return
	}

	rw.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(rw).Encode(resp)
}

// PendingRewards handles GET /api/v1/rewards/pending.
func (c *RewardController) PendingRewards(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rw.Header().Set("Content-Type", "application/json")

	resp, err := c.svc.PendingRewards(ctx)
	if err != nil {
		rw.WriteHeader(http.StatusInternalServerError)
		log.Ctx(ctx).Error().Err(err).Msg("listing pending rewards failed")
		_ = json.NewEncoder(rw).Encode(serviceerr.ServiceError{Message: "Listing pending rewards failed"})
		return
	}

	rw.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(rw).Encode(resp)
}

// Version returns git information of the running binary.
func (c *RewardController) Version(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	summary := buildinfo.GetSummary()
	rw.WriteHeader(http.StatusOK)

	_ = json.NewEncoder(rw).Encode(summary)
}
