// Package pipeline drives a write through approve, act and confirm.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/tkeith/wallet-hopper-2/clients"
	"github.com/tkeith/wallet-hopper-2/logger"
	"github.com/tkeith/wallet-hopper-2/metrics"
	"github.com/tkeith/wallet-hopper-2/types"
)

// Pipeline submits calls through a Submitter and waits for their receipts.
type Pipeline struct {
	submitter clients.Submitter
	reader    clients.ChainReader
	policy    ConfirmPolicy
	log       logger.Logger
	metrics   metrics.Recorder
	sink      EventSink
	sleep     Sleeper
	now       func() time.Time
}

type Option func(*Pipeline)

func WithPolicy(p ConfirmPolicy) Option {
	return func(pl *Pipeline) {
		pl.policy = p.normalized()
	}
}

func WithLogger(l logger.Logger) Option {
	return func(pl *Pipeline) {
		if l != nil {
			pl.log = l
		}
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(pl *Pipeline) {
		if r != nil {
			pl.metrics = r
		}
	}
}

func WithEventSink(s EventSink) Option {
	return func(pl *Pipeline) {
		if s != nil {
			pl.sink = s
		}
	}
}

// WithClock replaces the sleep and time source, for tests.
func WithClock(sleep Sleeper, now func() time.Time) Option {
	return func(pl *Pipeline) {
		if sleep != nil {
			pl.sleep = sleep
		}
		if now != nil {
			pl.now = now
		}
	}
}

func New(submitter clients.Submitter, reader clients.ChainReader, opts ...Option) *Pipeline {
	p := &Pipeline{
		submitter: submitter,
		reader:    reader,
		policy:    DefaultConfirmPolicy(),
		log:       logger.NoopLogger{},
		metrics:   metrics.NoopRecorder{},
		sink:      discardEvents,
		sleep:     sleepContext,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes spec and returns the handle of its act transaction. When the
// approve stage fails the act is never submitted and the approve handle is
// returned with the error.
func (p *Pipeline) Run(ctx context.Context, spec types.PipelineSpec) (*types.TransactionHandle, error) {
	if spec.Approve != nil {
		handle, err := p.stage(ctx, spec, StageApprove, *spec.Approve)
		if err != nil {
			return handle, err
		}
	}
	return p.stage(ctx, spec, StageAct, spec.Act)
}

func (p *Pipeline) stage(ctx context.Context, spec types.PipelineSpec, stage Stage, call types.Call) (*types.TransactionHandle, error) {
	handle := &types.TransactionHandle{
		Chain:   spec.Chain,
		ChainID: spec.ChainID,
		State:   types.TxSubmitting,
	}
	log := logger.With(p.log, map[string]any{
		"pipeline": spec.Name,
		"stage":    string(stage),
		"chain":    spec.Chain,
	})

	p.emit(spec, stage, handle, "", call.Description)

	hash, err := p.submitter.Submit(ctx, call)
	if err != nil {
		handle.State = types.TxFailed
		log.Error("submission failed", map[string]any{"error": err})
		p.emit(spec, stage, handle, types.CodeOf(err), "transaction was not submitted")
		return handle, err
	}

	handle.Hash = hash
	handle.State = types.TxSubmitted
	log.Info("transaction submitted", map[string]any{"tx": hash.Hex()})
	p.emit(spec, stage, handle, "", "transaction submitted")

	handle.State = types.TxPolling
	p.emit(spec, stage, handle, "", "waiting for confirmation")

	started := p.now()
	receipt, err := p.confirm(ctx, spec, stage, handle, log)
	if err != nil {
		if types.IsCode(err, types.ErrUnconfirmedTimeout) {
			handle.State = types.TxTimedOut
			p.emit(spec, stage, handle, types.ErrUnconfirmedTimeout, "transaction not confirmed in time")
		}
		return handle, err
	}

	if receipt.Status == ethtypes.ReceiptStatusFailed {
		handle.State = types.TxFailed
		handle.Reverted = true
		log.Error("transaction reverted", map[string]any{"tx": hash.Hex(), "block": receipt.BlockNumber})
		p.emit(spec, stage, handle, types.ErrTransactionReverted, "transaction reverted")
		return handle, types.Errorf(types.ErrTransactionReverted, "transaction %s reverted", hash.Hex())
	}

	handle.State = types.TxConfirmed
	p.metrics.ObserveLatency(metrics.ConfirmLatency, p.now().Sub(started), map[string]string{
		"stage": string(stage),
		"chain": spec.Chain,
	})
	log.Info("transaction confirmed", map[string]any{"tx": hash.Hex(), "attempts": handle.Attempts})
	p.emit(spec, stage, handle, "", "transaction confirmed")
	return handle, nil
}

// confirm polls until a receipt is returned. Every read failure, including a
// not yet mined transaction, is treated as transient.
func (p *Pipeline) confirm(ctx context.Context, spec types.PipelineSpec, stage Stage, handle *types.TransactionHandle, log logger.Logger) (*ethtypes.Receipt, error) {
	policy := p.policy
	delay := policy.Interval
	start := p.now()

	for {
		handle.Attempts++
		receipt, err := p.reader.TransactionReceipt(ctx, handle.Hash)
		p.metrics.IncCounter(metrics.ConfirmPolls, map[string]string{"stage": string(stage), "chain": spec.Chain})
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		fields := map[string]any{"tx": handle.Hash.Hex(), "attempt": handle.Attempts, "code": types.ErrPollingTransient}
		if err != nil && !clients.IsNotFound(err) {
			fields["error"] = err
		}
		log.Debug("receipt not available", fields)

		if policy.MaxAttempts > 0 && handle.Attempts >= policy.MaxAttempts {
			return nil, p.timeout(handle.Hash, err)
		}
		if policy.MaxDuration > 0 && p.now().Sub(start) >= policy.MaxDuration {
			return nil, p.timeout(handle.Hash, err)
		}

		if err := p.sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay = policy.next(delay)
	}
}

func (p *Pipeline) timeout(hash common.Hash, last error) error {
	if last == nil {
		last = errors.New("empty receipt")
	}
	return types.NewError(types.ErrUnconfirmedTimeout, "transaction "+hash.Hex()+" not confirmed", last)
}

func (p *Pipeline) emit(spec types.PipelineSpec, stage Stage, handle *types.TransactionHandle, code, message string) {
	p.metrics.IncCounter(metrics.PipelineStage, map[string]string{
		"stage":   string(stage),
		"chain":   spec.Chain,
		"outcome": string(handle.State),
	})
	p.sink(Event{
		Pipeline: spec.Name,
		Chain:    spec.Chain,
		Stage:    stage,
		State:    handle.State,
		TxHash:   handle.Hash,
		Attempt:  handle.Attempts,
		Code:     code,
		Message:  message,
	})
}
