// Package publication stores a recipient's preference document and anchors
// its content handle in the on-chain pointer registry.
package publication

import (
	"context"
	"time"

	"github.com/tkeith/wallet-hopper-2/clients"
	"github.com/tkeith/wallet-hopper-2/logger"
	"github.com/tkeith/wallet-hopper-2/preferences"
	"github.com/tkeith/wallet-hopper-2/types"
	"github.com/tkeith/wallet-hopper-2/utils"
)

// TimestampLayout is the document timestamp format, UTC with milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// PointerScheme prefixes content handles written to the registry.
const PointerScheme = "ipfs:"

// DocumentStore is satisfied by *preferences.Client.
type DocumentStore interface {
	Fetch(ctx context.Context, q preferences.LookupQuery) (*types.PreferenceDocument, error)
	Publish(ctx context.Context, doc *types.PreferenceDocument) (string, error)
	Evict(ctx context.Context, q preferences.LookupQuery)
}

// ContextResolver is satisfied by *chaincontext.Resolver.
type ContextResolver interface {
	Resolve(ctx context.Context) (*types.ChainContext, error)
}

// Runner is satisfied by *pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context, spec types.PipelineSpec) (*types.TransactionHandle, error)
}

type Service struct {
	docs     DocumentStore
	contexts ContextResolver
	runner   Runner
	now      func() time.Time
	log      logger.Logger
}

type Option func(*Service)

func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithNow fixes the clock used for document timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(docs DocumentStore, contexts ContextResolver, runner Runner, opts ...Option) *Service {
	s := &Service{
		docs:     docs,
		contexts: contexts,
		runner:   runner,
		now:      time.Now,
		log:      logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish validates text as a preference document, stores it and points the
// registry at the stored copy. Nothing external is contacted for an invalid
// document.
func (s *Service) Publish(ctx context.Context, text string) (*types.PublicationResult, error) {
	doc, err := utils.ParsePreferenceDocument([]byte(text))
	if err != nil {
		return nil, err
	}

	chainCtx, err := s.contexts.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if !chainCtx.CanWrite() {
		return nil, types.Errorf(types.ErrUnsupportedChain,
			"no preference registry configured for chain %d", chainCtx.ChainID)
	}
	if !utils.SameAddress(doc.PrimaryAddress, chainCtx.Address.Hex()) {
		s.log.Warn("publishing a document for another address", map[string]any{
			"primary": doc.PrimaryAddress,
			"wallet":  chainCtx.Address.Hex(),
		})
	}

	doc.Timestamp = s.timestamp()
	handle, err := s.docs.Publish(ctx, doc)
	if err != nil {
		return nil, err
	}

	pointer := PointerScheme + handle
	call, err := clients.SetPointerCall(*chainCtx.Contract, pointer)
	if err != nil {
		return nil, err
	}

	tx, err := s.runner.Run(ctx, types.PipelineSpec{
		Name:    "publish",
		Chain:   chainCtx.Chain.Name,
		ChainID: chainCtx.ChainID,
		Act:     call,
	})
	if err != nil {
		return nil, err
	}

	s.docs.Evict(ctx, s.query(chainCtx, doc.PrimaryAddress))
	result := &types.PublicationResult{
		ContentHandle: handle,
		Pointer:       pointer,
		Transaction:   *tx,
		ExplorerURL:   chainCtx.Chain.TxURL(tx.Hash.Hex()),
	}
	s.log.Info("preferences published", map[string]any{
		"handle": handle,
		"tx":     tx.Hash.Hex(),
		"chain":  chainCtx.Chain.Name,
	})
	return result, nil
}

// Draft returns the wallet's current document with a fresh timestamp, or a
// starter document when none has been published.
func (s *Service) Draft(ctx context.Context) (*types.PreferenceDocument, error) {
	chainCtx, err := s.contexts.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	wallet := chainCtx.Address.Hex()
	doc, err := s.docs.Fetch(ctx, s.query(chainCtx, wallet))
	switch {
	case err == nil:
		draft := doc.Clone()
		draft.Timestamp = s.timestamp()
		if addr := utils.NormalizeAddress(draft.PrimaryAddress); addr != "" {
			draft.PrimaryAddress = addr
		}
		for i, a := range draft.Addresses {
			if addr := utils.NormalizeAddress(a); addr != "" {
				draft.Addresses[i] = addr
			}
		}
		return draft, nil
	case types.IsCode(err, types.ErrPreferencesNotFound):
	default:
		return nil, err
	}

	return &types.PreferenceDocument{
		Timestamp:      s.timestamp(),
		PrimaryAddress: wallet,
		PrimaryChain:   chainCtx.Chain.Name,
		PreferredAssets: []types.PreferredAsset{
			{Chain: types.ChainEthereum, Address: wallet, Symbol: "ETH"},
		},
		Addresses:    []string{wallet},
		Attestations: map[string]any{},
	}, nil
}

func (s *Service) query(chainCtx *types.ChainContext, user string) preferences.LookupQuery {
	q := preferences.LookupQuery{UserAddress: user, Blockchain: chainCtx.Chain.Name}
	if chainCtx.Contract != nil {
		q.TokenAddress = chainCtx.Contract.Hex()
	}
	return q
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(TimestampLayout)
}
