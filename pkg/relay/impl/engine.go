package impl

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	logger "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/instrument"
	"go.uber.org/atomic"

	"github.com/rewardlabs/go-rewarder/pkg/fees"
	"github.com/rewardlabs/go-rewarder/pkg/nonce"
	"github.com/rewardlabs/go-rewarder/pkg/relay"
	"github.com/rewardlabs/go-rewarder/pkg/wallet"
)

var log = logger.With().Str("component", "relay").Logger()

// Config holds the fixed payout policy and polling intervals of an Engine.
type Config struct {
	ChainID        int64
	CustodyAddress common.Address

	// PayoutAmount is the fixed transfer value in wei.
	PayoutAmount *big.Int
	GasLimit     uint64

	// CheckInterval is the receipt polling period of confirmation watchers.
	CheckInterval time.Duration

	// BalanceCheckInterval drives the wallet balance gauge; zero disables it.
	BalanceCheckInterval time.Duration
}

// Engine orchestrates one payout: allocate sequence number, fetch fee quote,
// build and sign, broadcast, record in the pending registry and hand off to a
// detached confirmation watcher. The caller gets the transaction hash at
// broadcast time, never waiting on inclusion.
type Engine struct {
	wallet      *wallet.Wallet
	backend     relay.ChainBackend
	sequencer   nonce.Sequencer
	estimator   fees.Estimator
	builder     *PayoutBuilder
	broadcaster *Broadcaster
	registry    *PendingRegistry
	cfg         Config

	// bgCtx bounds detached watchers to the process, not to any request.
	bgCtx context.Context

	confirmed          atomic.Int64
	confirmationErrors atomic.Int64
	currGweiBalance    atomic.Int64

	mBaseLabels []attribute.KeyValue
	mConfirmed  instrument.Int64Counter
}

// NewEngine creates an Engine. ctx bounds all background work the engine
// spawns (confirmation watchers, balance tracking) and should live as long as
// the process.
func NewEngine(
	ctx context.Context,
	w *wallet.Wallet,
	backend relay.ChainBackend,
	sequencer nonce.Sequencer,
	estimator fees.Estimator,
	cfg Config,
) (*Engine, error) {
	if cfg.PayoutAmount == nil || cfg.PayoutAmount.Sign() <= 0 {
		return nil, errors.New("payout amount must be positive")
	}
	if (cfg.CustodyAddress == common.Address{}) {
		return nil, errors.New("custody address is empty")
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = 21000
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 5 * time.Second
	}

	e := &Engine{
		wallet:      w,
		backend:     backend,
		sequencer:   sequencer,
		estimator:   estimator,
		builder:     NewPayoutBuilder(w, big.NewInt(cfg.ChainID), cfg.PayoutAmount, cfg.GasLimit),
		broadcaster: NewBroadcaster(backend),
		registry:    NewPendingRegistry(),
		cfg:         cfg,
		bgCtx:       ctx,
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("initializing metrics: %s", err)
	}
	if cfg.BalanceCheckInterval > 0 {
		go e.trackBalance()
	}

	log.Info().
		Str("wallet", w.String()).
		Str("custody", cfg.CustodyAddress.Hex()).
		Str("amountWei", cfg.PayoutAmount.String()).
		Int64("chainID", cfg.ChainID).
		Msg("initializing relay engine")

	return e, nil
}

// Process relays one payout for a submitted score. Every step short-circuits
// to a failed attempt; the registry is only touched after a successful
// broadcast. The sequence allocation lock is never held across network waits
// here: allocation returns before the fee fetch and broadcast begin.
func (e *Engine) Process(ctx context.Context, score uint64, address common.Address) (common.Hash, error) {
	sequence, err := e.sequencer.Next(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("allocating sequence number: %w", err)
	}

	quote, err := e.estimator.Current(ctx)
	if err != nil {
		e.resyncAfterBurn(ctx)
		return common.Hash{}, fmt.Errorf("fetching fee quote: %w", err)
	}

	txn, err := e.builder.Build(sequence, quote, e.cfg.CustodyAddress)
	if err != nil {
		e.resyncAfterBurn(ctx)
		return common.Hash{}, fmt.Errorf("building payout: %w", err)
	}

	hash, err := e.broadcaster.Send(ctx, txn)
	if err != nil {
		e.resyncAfterBurn(ctx)
		return common.Hash{}, err
	}

	e.registry.Insert(relay.PendingReward{
		Hash:      hash,
		Nonce:     sequence,
		Score:     score,
		Address:   address,
		CreatedAt: time.Now(),
	})
	go e.watch(hash)

	log.Info().
		Str("hash", hash.Hex()).
		Uint64("nonce", sequence).
		Uint64("score", score).
		Str("submitter", address.Hex()).
		Msg("payout broadcast")

	return hash, nil
}

// resyncAfterBurn re-reads sequence state after an allocation was consumed
// without reaching the network. Without it the next allocation would sit one
// past the ledger's pending nonce and every later payout would queue
// unmineable. Best effort: a failed resync leaves the sequencer unsynced and
// the next allocation retries the read.
func (e *Engine) resyncAfterBurn(ctx context.Context) {
	if err := e.sequencer.Resync(ctx); err != nil {
		log.Warn().Err(err).Msg("sequence resync after burned allocation failed")
	}
}

// PendingCount returns the number of broadcast, unconfirmed payouts.
func (e *Engine) PendingCount() int {
	return e.registry.Count()
}

// Pending returns a snapshot of the broadcast, unconfirmed payouts.
func (e *Engine) Pending() []relay.PendingReward {
	return e.registry.List()
}

// ConfirmedCount returns the number of payouts confirmed by watchers since
// the process started.
func (e *Engine) ConfirmedCount() int64 {
	return e.confirmed.Load()
}

// watch polls for the receipt of one broadcast transaction. On inclusion the
// registry entry is removed. A query error other than not-found abandons the
// watch and leaves the entry for the reconciler; nothing is reported to the
// original caller, whose request already returned.
func (e *Engine) watch(hash common.Hash) {
	ticker := time.NewTicker(e.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.bgCtx.Done():
			return
		case <-ticker.C:
			receipt, err := e.backend.TransactionReceipt(e.bgCtx, hash)
			if errors.Is(err, ethereum.NotFound) {
				continue
			}
			if err != nil {
				e.confirmationErrors.Inc()
				log.Error().
					Err(err).
					Str("hash", hash.Hex()).
					Msg("confirmation query failed; leaving entry for reconciliation")
				return
			}

			e.registry.Delete(hash)
			e.confirmed.Inc()
			e.mConfirmed.Add(e.bgCtx, 1, e.mBaseLabels...)
			log.Info().
				Str("hash", hash.Hex()).
				Int64("blockNumber", receipt.BlockNumber.Int64()).
				Uint64("status", receipt.Status).
				Msg("payout confirmed")
			return
		}
	}
}
