package impl

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/global"
	"go.opentelemetry.io/otel/metric/instrument"

	"github.com/rewardlabs/go-rewarder/internal/rewards"
)

// InstrumentedRewardService wraps a rewards.Service with call instrumentation.
type InstrumentedRewardService struct {
	svc              rewards.Service
	callCount        instrument.Int64Counter
	latencyHistogram instrument.Int64Histogram
}

// NewInstrumentedRewardService creates a new InstrumentedRewardService.
func NewInstrumentedRewardService(svc rewards.Service) (rewards.Service, error) {
	meter := global.MeterProvider().Meter("rewarder")
	callCount, err := meter.Int64Counter("rewarder.service.call.count")
	if err != nil {
		return nil, fmt.Errorf("creating call count metric: %s", err)
	}
	latencyHistogram, err := meter.Int64Histogram("rewarder.service.call.latency")
	if err != nil {
		return nil, fmt.Errorf("creating latency metric: %s", err)
	}

	return &InstrumentedRewardService{svc, callCount, latencyHistogram}, nil
}

// SubmitReward relays a fixed-value payout for the score.
func (s *InstrumentedRewardService) SubmitReward(
	ctx context.Context,
	req rewards.SubmitRewardRequest,
) (rewards.SubmitRewardResponse, error) {
	start := time.Now()
	resp, err := s.svc.SubmitReward(ctx, req)
	s.record(ctx, "SubmitReward", err == nil, time.Since(start).Milliseconds())
	return resp, err
}

// PendingRewards lists payouts that were broadcast but not yet confirmed.
func (s *InstrumentedRewardService) PendingRewards(ctx context.Context) (rewards.PendingRewardsResponse, error) {
	start := time.Now()
	resp, err := s.svc.PendingRewards(ctx)
	s.record(ctx, "PendingRewards", err == nil, time.Since(start).Milliseconds())
	return resp, err
}

func (s *InstrumentedRewardService) record(ctx context.Context, method string, success bool, latency int64) {
	attributes := []attribute.KeyValue{
		{Key: "method", Value: attribute.StringValue(method)},
		{Key: "success", Value: attribute.BoolValue(success)},
	}

	s.callCount.Add(ctx, 1, attributes...)
	s.latencyHistogram.Record(ctx, latency, attributes...)
}
