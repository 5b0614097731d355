package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkeith/wallet-hopper-2/types"
)

type fakeSubmitter struct {
	mu    sync.Mutex
	calls []types.Call
	errs  map[string]error
}

func (f *fakeSubmitter) Submit(_ context.Context, call types.Call) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[call.Description]; err != nil {
		return common.Hash{}, err
	}
	f.calls = append(f.calls, call)
	return common.BytesToHash([]byte(call.Description)), nil
}

// flakyReader fails a fixed number of times per hash before returning a receipt.
type flakyReader struct {
	failures int
	status   uint64
	calls    map[common.Hash]int
	err      error
}

func newFlakyReader(failures int) *flakyReader {
	return &flakyReader{
		failures: failures,
		status:   ethtypes.ReceiptStatusSuccessful,
		calls:    map[common.Hash]int{},
		err:      ethereum.NotFound,
	}
}

func (r *flakyReader) TransactionReceipt(_ context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	r.calls[hash]++
	if r.failures < 0 || r.calls[hash] <= r.failures {
		return nil, r.err
	}
	return &ethtypes.Receipt{Status: r.status, TxHash: hash}, nil
}

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Now() time.Time { return c.now }

func testSpec(withApprove bool) types.PipelineSpec {
	spec := types.PipelineSpec{
		Name:    "bridge",
		Chain:   types.ChainPolygon,
		ChainID: 137,
		Act:     types.Call{To: common.HexToAddress("0x02"), Description: "deposit"},
	}
	if withApprove {
		spec.Approve = &types.Call{To: common.HexToAddress("0x01"), Description: "approve USDC"}
	}
	return spec
}

func TestConfirm_PollsUntilMined(t *testing.T) {
	const failures = 4
	clock := newFakeClock()
	reader := newFlakyReader(failures)
	p := New(&fakeSubmitter{}, reader, WithClock(clock.Sleep, clock.Now))

	handle, err := p.Run(context.Background(), testSpec(false))
	require.NoError(t, err)

	assert.Equal(t, types.TxConfirmed, handle.State)
	assert.Equal(t, failures+1, reader.calls[handle.Hash])
	assert.Equal(t, failures+1, handle.Attempts)
	require.Len(t, clock.sleeps, failures)
	for _, d := range clock.sleeps {
		assert.Equal(t, 3*time.Second, d)
	}
}

func TestRun_ApproveThenAct(t *testing.T) {
	clock := newFakeClock()
	sub := &fakeSubmitter{}
	var events []Event
	p := New(sub, newFlakyReader(0),
		WithClock(clock.Sleep, clock.Now),
		WithEventSink(func(e Event) { events = append(events, e) }),
	)

	handle, err := p.Run(context.Background(), testSpec(true))
	require.NoError(t, err)

	require.Len(t, sub.calls, 2)
	assert.Equal(t, "approve USDC", sub.calls[0].Description)
	assert.Equal(t, "deposit", sub.calls[1].Description)
	assert.Equal(t, common.BytesToHash([]byte("deposit")), handle.Hash)
	assert.Equal(t, types.ChainPolygon, handle.Chain)
	assert.Equal(t, int64(137), handle.ChainID)

	var states []types.TxState
	for _, e := range events {
		states = append(states, e.State)
	}
	assert.Equal(t, []types.TxState{
		types.TxSubmitting, types.TxSubmitted, types.TxPolling, types.TxConfirmed,
		types.TxSubmitting, types.TxSubmitted, types.TxPolling, types.TxConfirmed,
	}, states)
	assert.Equal(t, StageApprove, events[0].Stage)
	assert.Equal(t, StageAct, events[len(events)-1].Stage)
}

func TestRun_SkipsApproveWhenAbsent(t *testing.T) {
	sub := &fakeSubmitter{}
	p := New(sub, newFlakyReader(0))

	_, err := p.Run(context.Background(), testSpec(false))
	require.NoError(t, err)
	require.Len(t, sub.calls, 1)
	assert.Equal(t, "deposit", sub.calls[0].Description)
}

func TestRun_ApproveRejectedStopsPipeline(t *testing.T) {
	rejected := types.NewError(types.ErrUserRejected, "transaction rejected by user", errors.New("user denied"))
	sub := &fakeSubmitter{errs: map[string]error{"approve USDC": rejected}}
	var events []Event
	p := New(sub, newFlakyReader(0), WithEventSink(func(e Event) { events = append(events, e) }))

	handle, err := p.Run(context.Background(), testSpec(true))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrUserRejected))
	assert.Equal(t, types.TxFailed, handle.State)
	assert.Empty(t, sub.calls)

	last := events[len(events)-1]
	assert.Equal(t, types.TxFailed, last.State)
	assert.Equal(t, types.ErrUserRejected, last.Code)
	assert.NotContains(t, last.Message, "user denied")
}

func TestRun_Reverted(t *testing.T) {
	reader := newFlakyReader(0)
	reader.status = ethtypes.ReceiptStatusFailed
	p := New(&fakeSubmitter{}, reader)

	handle, err := p.Run(context.Background(), testSpec(false))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrTransactionReverted))
	assert.True(t, handle.Reverted)
	assert.Equal(t, types.TxFailed, handle.State)
}

func TestConfirm_MaxDurationTimesOut(t *testing.T) {
	clock := newFakeClock()
	reader := newFlakyReader(-1)
	p := New(&fakeSubmitter{}, reader,
		WithClock(clock.Sleep, clock.Now),
		WithPolicy(ConfirmPolicy{Interval: time.Second, MaxDuration: 3 * time.Second}),
	)

	handle, err := p.Run(context.Background(), testSpec(false))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrUnconfirmedTimeout))
	assert.Equal(t, types.TxTimedOut, handle.State)
	assert.Equal(t, 4, handle.Attempts)
	assert.Len(t, clock.sleeps, 3)
}

func TestConfirm_MaxAttemptsWithBackoff(t *testing.T) {
	clock := newFakeClock()
	p := New(&fakeSubmitter{}, newFlakyReader(-1),
		WithClock(clock.Sleep, clock.Now),
		WithPolicy(ConfirmPolicy{Interval: time.Second, Multiplier: 2, MaxInterval: 3 * time.Second, MaxAttempts: 4}),
	)

	handle, err := p.Run(context.Background(), testSpec(false))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrUnconfirmedTimeout))
	assert.Equal(t, 4, handle.Attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, clock.sleeps)
}

func TestConfirm_TransientErrorsAreRetried(t *testing.T) {
	clock := newFakeClock()
	reader := newFlakyReader(2)
	reader.err = errors.New("connection reset by peer")
	p := New(&fakeSubmitter{}, reader, WithClock(clock.Sleep, clock.Now))

	handle, err := p.Run(context.Background(), testSpec(false))
	require.NoError(t, err)
	assert.Equal(t, 3, handle.Attempts)
}

func TestConfirm_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := newFlakyReader(-1)
	calls := 0
	sleep := func(ctx context.Context, d time.Duration) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return ctx.Err()
	}
	p := New(&fakeSubmitter{}, reader, WithClock(sleep, nil))

	handle, err := p.Run(ctx, testSpec(false))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.TxPolling, handle.State)
	assert.Equal(t, 2, handle.Attempts)
}

func TestPolicyFromConfigDefaults(t *testing.T) {
	p := PolicyFromConfig(types.ConfirmConfig{})
	assert.Equal(t, DefaultConfirmPolicy(), p)

	p = PolicyFromConfig(types.ConfirmConfig{Interval: time.Second, Multiplier: 1.5, MaxAttempts: 10})
	assert.Equal(t, time.Second, p.Interval)
	assert.Equal(t, 1500*time.Millisecond, p.next(time.Second))
}
