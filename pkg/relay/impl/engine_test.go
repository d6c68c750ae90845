package impl

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/rewardlabs/go-rewarder/pkg/fees"
	nonceimpl "github.com/rewardlabs/go-rewarder/pkg/nonce/impl"
	"github.com/rewardlabs/go-rewarder/pkg/relay"
	"github.com/rewardlabs/go-rewarder/pkg/wallet"
)

var (
	testCustody = common.HexToAddress("0xd43c59d5694ec111eb9e986c233200b14249558d")
	testAmount  = big.NewInt(10000000000000000)
)

func TestProcessBroadcastsAndRegisters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	backend := &chainBackendMock{}
	sequencer := &sequencerStub{}
	sequencer.next.Store(7)
	engine := testEngine(t, ctx, backend, sequencer, &estimatorStub{
		quote: fees.Quote{GasTipCap: big.NewInt(1), GasFeeCap: big.NewInt(10)},
	})

	submitter := common.HexToAddress("0xB2Fd1652BFc0DF47a4d75f1F33Dd9A2EE9c85b99")
	hash, err := engine.Process(ctx, 42, submitter)
	require.NoError(t, err)
	require.NotEqual(t, common.Hash{}, hash)

	require.Equal(t, 1, engine.PendingCount())
	entry, ok := engine.registry.Get(hash)
	require.True(t, ok)
	require.Equal(t, uint64(7), entry.Nonce)
	require.Equal(t, uint64(42), entry.Score)
	require.Equal(t, submitter, entry.Address)

	// The broadcast artifact transfers the fixed amount to custody under
	// the allocated sequence number and fee quote.
	sent := backend.sentTxns()
	require.Len(t, sent, 1)
	txn := sent[0]
	require.Equal(t, uint64(7), txn.Nonce())
	require.Zero(t, testAmount.Cmp(txn.Value()))
	require.Equal(t, testCustody, *txn.To())
	require.Equal(t, int64(1), txn.GasTipCap().Int64())
	require.Equal(t, int64(10), txn.GasFeeCap().Int64())
	require.Equal(t, uint64(21000), txn.Gas())
}

func TestProcessSequenceFailureAbortsAttempt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	backend := &chainBackendMock{}
	sequencer := &sequencerStub{nextErr: errors.New("connection refused")}
	estimator := &estimatorStub{
		quote: fees.Quote{GasTipCap: big.NewInt(1), GasFeeCap: big.NewInt(10)},
	}
	engine := testEngine(t, ctx, backend, sequencer, estimator)

	_, err := engine.Process(ctx, 42, testCustody)
	require.Error(t, err)
	require.Equal(t, 0, engine.PendingCount())
	require.Empty(t, backend.sentTxns())
	require.Equal(t, int64(0), estimator.calls.Load())
}

func TestProcessFeeQuoteFailureAbortsAttempt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	backend := &chainBackendMock{}
	sequencer := &sequencerStub{}
	engine := testEngine(t, ctx, backend, sequencer, &estimatorStub{
		err: fees.ErrFeeDataUnavailable,
	})

	_, err := engine.Process(ctx, 42, testCustody)
	require.ErrorIs(t, err, fees.ErrFeeDataUnavailable)
	require.Equal(t, 0, engine.PendingCount())
	require.Empty(t, backend.sentTxns())

	// The allocation was consumed without a broadcast, so the sequence
	// state must be re-read.
	require.Equal(t, int64(1), sequencer.resyncs.Load())
}

func TestProcessBuildFailureResyncsSequence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	backend := &chainBackendMock{}
	sequencer := &sequencerStub{}

	// The quote passes the estimator but fails the builder's check.
	engine := testEngine(t, ctx, backend, sequencer, &estimatorStub{
		quote: fees.Quote{GasFeeCap: big.NewInt(10)},
	})

	_, err := engine.Process(ctx, 42, testCustody)
	require.ErrorIs(t, err, fees.ErrFeeDataUnavailable)
	require.Equal(t, 0, engine.PendingCount())
	require.Empty(t, backend.sentTxns())
	require.Equal(t, int64(1), sequencer.resyncs.Load())
}

func TestProcessBurnedAllocationDoesNotWedgeSequence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	w, err := wallet.NewWallet(hex.EncodeToString(crypto.FromECDSA(key)))
	require.NoError(t, err)

	// A real sequencer over a ledger whose pending nonce stays at 10: the
	// failed attempt burns allocation 10, and without a resync the retry
	// would broadcast 11 and queue unmineable behind the gap.
	backend := &chainBackendMock{}
	sequencer := nonceimpl.NewLocalSequencer(w, &pendingNonceMock{nonce: 10})
	estimator := &estimatorStub{err: fees.ErrFeeDataUnavailable}

	engine, err := NewEngine(ctx, w, backend, sequencer, estimator, Config{
		ChainID:        1337,
		CustodyAddress: testCustody,
		PayoutAmount:   testAmount,
		CheckInterval:  time.Hour,
	})
	require.NoError(t, err)

	_, err = engine.Process(ctx, 42, testCustody)
	require.ErrorIs(t, err, fees.ErrFeeDataUnavailable)

	estimator.err = nil
	estimator.quote = fees.Quote{GasTipCap: big.NewInt(1), GasFeeCap: big.NewInt(10)}

	_, err = engine.Process(ctx, 42, testCustody)
	require.NoError(t, err)

	sent := backend.sentTxns()
	require.Len(t, sent, 1)
	require.Equal(t, uint64(10), sent[0].Nonce())
}

func TestProcessBroadcastRejection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	backend := &chainBackendMock{sendErr: errors.New("insufficient funds")}
	sequencer := &sequencerStub{}
	engine := testEngine(t, ctx, backend, sequencer, &estimatorStub{
		quote: fees.Quote{GasTipCap: big.NewInt(1), GasFeeCap: big.NewInt(10)},
	})

	_, err := engine.Process(ctx, 42, testCustody)
	require.ErrorIs(t, err, relay.ErrBroadcastRejected)
	require.Equal(t, 0, engine.PendingCount())

	// The burned allocation triggered a sequence resync.
	require.Equal(t, int64(1), sequencer.resyncs.Load())
}

func TestWatcherConfirmsPayout(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := &chainBackendMock{}
	var polls atomic.Int64
	backend.receiptFn = func(hash common.Hash) (*types.Receipt, error) {
		// The first poll finds nothing; the second finds the receipt.
		if polls.Inc() == 1 {
			return nil, ethereum.NotFound
		}
		return &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			BlockNumber: big.NewInt(100),
		}, nil
	}

	engine := testEngineWithCfg(t, ctx, backend, &sequencerStub{}, &estimatorStub{
		quote: fees.Quote{GasTipCap: big.NewInt(1), GasFeeCap: big.NewInt(10)},
	}, Config{
		ChainID:        1337,
		CustodyAddress: testCustody,
		PayoutAmount:   testAmount,
		CheckInterval:  10 * time.Millisecond,
	})

	_, err := engine.Process(ctx, 42, testCustody)
	require.NoError(t, err)
	require.Equal(t, 1, engine.PendingCount())

	require.Eventually(t, func() bool {
		return engine.PendingCount() == 0 && engine.ConfirmedCount() == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcherAbandonsOnQueryError(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := &chainBackendMock{}
	backend.receiptFn = func(hash common.Hash) (*types.Receipt, error) {
		return nil, errors.New("connection refused")
	}

	engine := testEngineWithCfg(t, ctx, backend, &sequencerStub{}, &estimatorStub{
		quote: fees.Quote{GasTipCap: big.NewInt(1), GasFeeCap: big.NewInt(10)},
	}, Config{
		ChainID:        1337,
		CustodyAddress: testCustody,
		PayoutAmount:   testAmount,
		CheckInterval:  10 * time.Millisecond,
	})

	_, err := engine.Process(ctx, 42, testCustody)
	require.NoError(t, err)

	// The watcher gives up but the entry stays for reconciliation.
	require.Eventually(t, func() bool {
		return engine.confirmationErrors.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, engine.PendingCount())
	require.Equal(t, int64(0), engine.ConfirmedCount())
}

func testEngine(
	t *testing.T,
	ctx context.Context,
	backend relay.ChainBackend,
	sequencer *sequencerStub,
	estimator *estimatorStub,
) *Engine {
	t.Helper()
	return testEngineWithCfg(t, ctx, backend, sequencer, estimator, Config{
		ChainID:        1337,
		CustodyAddress: testCustody,
		PayoutAmount:   testAmount,
		CheckInterval:  time.Hour,
	})
}

func testEngineWithCfg(
	t *testing.T,
	ctx context.Context,
	backend relay.ChainBackend,
	sequencer *sequencerStub,
	estimator *estimatorStub,
	cfg Config,
) *Engine {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	w, err := wallet.NewWallet(hex.EncodeToString(crypto.FromECDSA(key)))
	require.NoError(t, err)

	engine, err := NewEngine(ctx, w, backend, sequencer, estimator, cfg)
	require.NoError(t, err)
	return engine
}

type chainBackendMock struct {
	mu        sync.Mutex
	sent      []*types.Transaction
	sendErr   error
	receiptFn func(hash common.Hash) (*types.Receipt, error)
}

func (m *chainBackendMock) SendTransaction(_ context.Context, txn *types.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, txn)
	return nil
}

func (m *chainBackendMock) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	m.mu.Lock()
	fn := m.receiptFn
	m.mu.Unlock()
	if fn != nil {
		return fn(hash)
	}
	return nil, ethereum.NotFound
}

func (m *chainBackendMock) BalanceAt(_ context.Context, _ common.Address, _ *big.Int) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (m *chainBackendMock) sentTxns() []*types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.Transaction, len(m.sent))
	copy(out, m.sent)
	return out
}

type pendingNonceMock struct {
	nonce uint64
}

func (m *pendingNonceMock) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	return m.nonce, nil
}

type sequencerStub struct {
	next    atomic.Uint64
	nextErr error
	resyncs atomic.Int64
}

func (s *sequencerStub) Next(_ context.Context) (uint64, error) {
	if s.nextErr != nil {
		return 0, s.nextErr
	}
	return s.next.Inc() - 1, nil
}

func (s *sequencerStub) Resync(_ context.Context) error {
	s.resyncs.Inc()
	return nil
}

type estimatorStub struct {
	quote fees.Quote
	err   error
	calls atomic.Int64
}

func (e *estimatorStub) Current(_ context.Context) (fees.Quote, error) {
	e.calls.Inc()
	if e.err != nil {
		return fees.Quote{}, e.err
	}
	return e.quote, nil
}
