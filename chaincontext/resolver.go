// Package chaincontext resolves the payer's wallet address, network and
// registry contract once per wallet session.
package chaincontext

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/tkeith/wallet-hopper-2/clients"
	"github.com/tkeith/wallet-hopper-2/logger"
	"github.com/tkeith/wallet-hopper-2/types"
	"golang.org/x/sync/singleflight"
)

// Resolver memoizes the ChainContext of the current wallet session.
type Resolver struct {
	wallet   clients.Wallet
	registry map[int64]common.Address
	log      logger.Logger

	group singleflight.Group

	mu      sync.Mutex
	session string
	cached  *types.ChainContext
}

// NewResolver builds a resolver. registry maps chain ids to pointer registry
// addresses; invalid addresses are skipped.
func NewResolver(wallet clients.Wallet, registry map[int64]string, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.NoopLogger{}
	}
	r := &Resolver{
		wallet:   wallet,
		registry: make(map[int64]common.Address, len(registry)),
		log:      log,
		session:  uuid.NewString(),
	}
	for id, addr := range registry {
		if !common.IsHexAddress(addr) {
			log.Warn("ignoring invalid registry address", map[string]any{"chainId": id, "address": addr})
			continue
		}
		r.registry[id] = common.HexToAddress(addr)
	}
	return r
}

// Resolve returns the context for the current session. Concurrent callers
// share one resolution; failures are not cached.
func (r *Resolver) Resolve(ctx context.Context) (*types.ChainContext, error) {
	r.mu.Lock()
	session := r.session
	c := r.cached
	r.mu.Unlock()
	if c != nil {
		return c, nil
	}
	return r.flight(ctx, session)
}

// flight runs one shared resolution for session. A caller that lost the race
// to an already finished flight picks up its cached result.
func (r *Resolver) flight(ctx context.Context, session string) (*types.ChainContext, error) {
	v, err, _ := r.group.Do(session, func() (any, error) {
		r.mu.Lock()
		if r.session == session && r.cached != nil {
			c := r.cached
			r.mu.Unlock()
			return c, nil
		}
		r.mu.Unlock()

		c, err := r.resolve(ctx, session)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		if r.session == session {
			r.cached = c
		}
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.ChainContext), nil
}

func (r *Resolver) resolve(ctx context.Context, session string) (*types.ChainContext, error) {
	if r.wallet == nil {
		return nil, types.Errorf(types.ErrWalletUnavailable, "no wallet configured")
	}

	addrs, err := r.wallet.Addresses(ctx)
	if err != nil {
		return nil, types.NewError(types.ErrWalletUnavailable, "account access failed", err)
	}
	if len(addrs) == 0 {
		return nil, types.Errorf(types.ErrWalletUnavailable, "wallet returned no accounts")
	}

	chainID, err := r.wallet.ChainID(ctx)
	if err != nil {
		return nil, types.NewError(types.ErrWalletUnavailable, "chain id fetch failed", err)
	}

	meta, ok := types.ChainByID(chainID)
	if !ok {
		meta = types.ChainMetadata{ChainID: chainID, Name: fmt.Sprintf("chain-%d", chainID)}
	}

	c := &types.ChainContext{
		SessionID: session,
		ChainID:   chainID,
		Chain:     meta,
		Address:   addrs[0],
	}
	if addr, ok := r.registry[chainID]; ok {
		c.Contract = &addr
	} else {
		r.log.Warn("no pointer registry for chain", map[string]any{"chainId": chainID, "chain": meta.Name})
	}

	r.log.Debug("resolved chain context", map[string]any{
		"session": session,
		"chainId": chainID,
		"address": c.Address.Hex(),
	})
	return c, nil
}

// Invalidate drops the cached context and starts a new session.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = uuid.NewString()
	r.cached = nil
}

// Session returns the current session id.
func (r *Resolver) Session() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Watch invalidates the context on every network change the wallet reports.
// It blocks until ctx ends and returns nil immediately for wallets that
// cannot report changes.
func (r *Resolver) Watch(ctx context.Context) error {
	notifier, ok := r.wallet.(clients.NetworkNotifier)
	if !ok {
		return nil
	}

	changes, err := notifier.NetworkChanges(ctx)
	if err != nil {
		return err
	}
	for id := range changes {
		r.log.Info("network changed", map[string]any{"chainId": id})
		r.Invalidate()
	}
	return nil
}
