package impl

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/params"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	"go.opentelemetry.io/otel/metric/instrument"

	"github.com/rewardlabs/go-rewarder/pkg/metrics"
)

func (e *Engine) initMetrics() error {
	meter := global.MeterProvider().Meter("rewarder")
	e.mBaseLabels = append([]attribute.KeyValue{
		attribute.Int64("chain_id", e.cfg.ChainID),
		attribute.String("wallet_address", e.wallet.String()),
	}, metrics.BaseAttrs...)

	mPendingTxns, err := meter.Int64ObservableGauge("rewarder.relay.pending.txns")
	if err != nil {
		return fmt.Errorf("creating pending txns metric: %s", err)
	}
	mBalance, err := meter.Int64ObservableGauge("rewarder.relay.balance.gwei")
	if err != nil {
		return fmt.Errorf("creating balance metric: %s", err)
	}
	mConfirmationErrors, err := meter.Int64ObservableGauge("rewarder.relay.confirmation.errors")
	if err != nil {
		return fmt.Errorf("creating confirmation errors metric: %s", err)
	}
	e.mConfirmed, err = meter.Int64Counter("rewarder.relay.confirmed.txns")
	if err != nil {
		return fmt.Errorf("creating confirmed txns metric: %s", err)
	}

	if _, err = meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(mPendingTxns, int64(e.registry.Count()), e.mBaseLabels...)
			o.ObserveInt64(mBalance, e.currGweiBalance.Load(), e.mBaseLabels...)
			o.ObserveInt64(mConfirmationErrors, e.confirmationErrors.Load(), e.mBaseLabels...)
			return nil
		}, []instrument.Asynchronous{
			mPendingTxns,
			mBalance,
			mConfirmationErrors,
		}...); err != nil {
		return fmt.Errorf("registering async metric callback: %s", err)
	}

	return nil
}

// trackBalance keeps the wallet balance gauge current and warns when the
// custody wallet can no longer fund a comfortable number of payouts.
func (e *Engine) trackBalance() {
	lowWater := new(big.Int).Mul(e.cfg.PayoutAmount, big.NewInt(10))

	for {
		select {
		case <-e.bgCtx.Done():
			return
		case <-time.After(e.cfg.BalanceCheckInterval):
			ctx, cls := context.WithTimeout(e.bgCtx, 15*time.Second)
			weiBalance, err := e.backend.BalanceAt(ctx, e.wallet.Address(), nil)
			cls()
			if err != nil {
				log.Error().Err(err).Msg("check balance failed")
				continue
			}

			gwei := new(big.Int).Div(weiBalance, big.NewInt(params.GWei))
			e.currGweiBalance.Store(gwei.Int64())

			if weiBalance.Cmp(lowWater) < 0 {
				log.Warn().
					Str("balance", weiBalance.String()).
					Str("address", e.wallet.String()).
					Msg("custody wallet balance is low")
			}
		}
	}
}
