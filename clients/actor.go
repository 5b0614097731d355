package clients

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tkeith/wallet-hopper-2/logger"
	hoptypes "github.com/tkeith/wallet-hopper-2/types"
)

var _ Submitter = (*WalletActor)(nil)

type submitRequest struct {
	ctx   context.Context
	call  hoptypes.Call
	reply chan submitReply
}

type submitReply struct {
	hash common.Hash
	err  error
}

// WalletActor owns a Wallet and runs its submissions one at a time on a
// single goroutine.
type WalletActor struct {
	wallet   Wallet
	log      logger.Logger
	requests chan submitRequest
	shutdown chan struct{}
	finished chan struct{}
	stopOnce sync.Once
}

// NewWalletActor starts the actor goroutine. Stop must be called to release it.
func NewWalletActor(wallet Wallet, log logger.Logger) *WalletActor {
	if log == nil {
		log = logger.NoopLogger{}
	}
	a := &WalletActor{
		wallet:   wallet,
		log:      log,
		requests: make(chan submitRequest),
		shutdown: make(chan struct{}),
		finished: make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *WalletActor) run() {
	defer close(a.finished)
	for {
		select {
		case <-a.shutdown:
			return
		case req := <-a.requests:
			req.reply <- a.submit(req)
		}
	}
}

func (a *WalletActor) submit(req submitRequest) submitReply {
	if err := req.ctx.Err(); err != nil {
		return submitReply{err: err}
	}

	a.log.Debug("submitting transaction", map[string]any{
		"to":          req.call.To.Hex(),
		"description": req.call.Description,
	})

	hash, err := a.wallet.SendTransaction(req.ctx, req.call)
	if err != nil {
		a.log.Warn("transaction submission failed", map[string]any{
			"description": req.call.Description,
			"error":       err,
		})
		return submitReply{err: classifySubmitError(err)}
	}
	return submitReply{hash: hash}
}

// Submit queues call behind any in-flight submission and waits for its hash.
func (a *WalletActor) Submit(ctx context.Context, call hoptypes.Call) (common.Hash, error) {
	req := submitRequest{
		ctx:   ctx,
		call:  call,
		reply: make(chan submitReply, 1),
	}

	select {
	case a.requests <- req:
	case <-a.shutdown:
		return common.Hash{}, hoptypes.NewError(hoptypes.ErrWalletUnavailable, "wallet is closed", ErrActorStopped)
	case <-ctx.Done():
		return common.Hash{}, ctx.Err()
	}

	select {
	case r := <-req.reply:
		return r.hash, r.err
	case <-ctx.Done():
		return common.Hash{}, ctx.Err()
	}
}

// Wallet returns the owned wallet for read-only calls.
func (a *WalletActor) Wallet() Wallet { return a.wallet }

// Stop ends the actor and waits for an in-flight submission to finish.
func (a *WalletActor) Stop() {
	a.stopOnce.Do(func() {
		close(a.shutdown)
	})
	<-a.finished
}
