package main

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"

	"github.com/rewardlabs/go-rewarder/buildinfo"
	rewardsimpl "github.com/rewardlabs/go-rewarder/internal/rewards/impl"
	"github.com/rewardlabs/go-rewarder/internal/router"
	feesimpl "github.com/rewardlabs/go-rewarder/pkg/fees/impl"
	"github.com/rewardlabs/go-rewarder/pkg/logging"
	"github.com/rewardlabs/go-rewarder/pkg/metrics"
	nonceimpl "github.com/rewardlabs/go-rewarder/pkg/nonce/impl"
	relayimpl "github.com/rewardlabs/go-rewarder/pkg/relay/impl"
	"github.com/rewardlabs/go-rewarder/pkg/wallet"
)

func main() {
	config := setupConfig()
	logging.SetupLogger("rewarder-api", buildinfo.GitCommit, config.Log.Debug, config.Log.Human)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := metrics.SetupInstrumentation(":"+config.Metrics.Port, "rewarder-api"); err != nil {
		log.Fatal().
			Err(err).
			Str("port", config.Metrics.Port).
			Msg("could not setup instrumentation")
	}

	w, err := wallet.NewWallet(config.Signer.PrivateKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create wallet from private key")
	}

	conn, err := ethclient.Dial(config.Gateway.EthEndpoint)
	if err != nil {
		log.Fatal().
			Err(err).
			Str("ethEndpoint", config.Gateway.EthEndpoint).
			Msg("failed to connect to ethereum endpoint")
	}
	defer conn.Close()

	engine, err := relayimpl.NewEngine(
		ctx,
		w,
		conn,
		nonceimpl.NewLocalSequencer(w, conn),
		feesimpl.NewEthEstimator(conn),
		relayimpl.Config{
			ChainID:              config.Gateway.ChainID,
			CustodyAddress:       parseCustodyAddress(config.Payout.CustodyAddress),
			PayoutAmount:         parseAmount(config.Payout.AmountWei),
			GasLimit:             config.Payout.GasLimit,
			CheckInterval:        parseDuration("watcher check interval", config.Watcher.CheckInterval),
			BalanceCheckInterval: parseDuration("balance check interval", config.Balance.CheckInterval),
		})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create relay engine")
	}

	reconciler := relayimpl.NewReconciler(
		engine,
		parseDuration("reconciler interval", config.Reconciler.Interval),
		parseDuration("reconciler stuck interval", config.Reconciler.StuckInterval),
	)
	// Settle anything left over from a previous run before serving traffic.
	if err := reconciler.Reconcile(ctx); err != nil {
		log.Warn().Err(err).Msg("startup reconciliation pass failed")
	}
	go reconciler.Run(ctx)

	svc := rewardsimpl.NewRewardService(engine)
	rtr, err := router.ConfiguredRouter(svc)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure router")
	}

	server := &http.Server{
		Addr:         ":" + config.HTTP.Port,
		Handler:      rtr.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("port", config.HTTP.Port).Msg("serving http api")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("port", config.HTTP.Port).Msg("could not start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("closing http server gracefully")
	shutdownCtx, cls := context.WithTimeout(context.Background(), 10*time.Second)
	defer cls()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
}

func parseCustodyAddress(addr string) common.Address {
	if !common.IsHexAddress(addr) {
		log.Fatal().Str("address", addr).Msg("custody address is not a valid hex address")
	}
	return common.HexToAddress(addr)
}

func parseAmount(amountWei string) *big.Int {
	amount, ok := new(big.Int).SetString(amountWei, 10)
	if !ok {
		log.Fatal().Str("amountWei", amountWei).Msg("payout amount is not a valid integer")
	}
	return amount
}

func parseDuration(name, value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Fatal().Err(err).Str("value", value).Msgf("parsing %s", name)
	}
	return d
}
