package compliance

import (
	"context"

	"github.com/tkeith/wallet-hopper-2/logger"
	"github.com/tkeith/wallet-hopper-2/metrics"
	"github.com/tkeith/wallet-hopper-2/preferences"
	"github.com/tkeith/wallet-hopper-2/types"
	"github.com/tkeith/wallet-hopper-2/utils"
)

// PreferenceFetcher is satisfied by *preferences.Client.
type PreferenceFetcher interface {
	Fetch(ctx context.Context, q preferences.LookupQuery) (*types.PreferenceDocument, error)
}

// ContextResolver is satisfied by *chaincontext.Resolver.
type ContextResolver interface {
	Resolve(ctx context.Context) (*types.ChainContext, error)
}

// Resolver fetches the recipient's document and checks the intent against
// the payer's current chain.
type Resolver struct {
	prefs    PreferenceFetcher
	contexts ContextResolver
	log      logger.Logger
	metrics  metrics.Recorder
}

func NewResolver(prefs PreferenceFetcher, contexts ContextResolver, log logger.Logger, rec metrics.Recorder) *Resolver {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Resolver{prefs: prefs, contexts: contexts, log: log, metrics: rec}
}

// Resolve returns the compliance result and the context it was evaluated in.
// A recipient without a usable document yields an Unknown result, not an error.
func (r *Resolver) Resolve(ctx context.Context, intent types.PaymentIntent) (*types.ComplianceResult, *types.ChainContext, error) {
	if err := utils.ValidatePaymentIntent(&intent); err != nil {
		return nil, nil, err
	}

	chainCtx, err := r.contexts.Resolve(ctx)
	if err != nil {
		return nil, nil, err
	}

	doc, err := r.prefs.Fetch(ctx, preferences.LookupQuery{UserAddress: intent.DestinationAddress})
	if err != nil && !types.IsCode(err, types.ErrPreferencesNotFound) {
		return nil, nil, err
	}

	result := Check(intent, doc, chainCtx.Chain.Name)
	r.metrics.IncCounter(metrics.ComplianceCheck, map[string]string{
		"chain":   result.Chain,
		"outcome": string(result.Status),
	})
	r.log.Info("compliance checked", map[string]any{
		"recipient": intent.DestinationAddress,
		"asset":     intent.Asset,
		"chain":     result.Chain,
		"status":    string(result.Status),
		"reason":    string(result.Reason),
	})
	return &result, chainCtx, nil
}
