// Package wallethopper checks a payment against the recipient's published
// settlement preferences and carries out the swap, bridge or privacy deposit
// that makes it compliant.
package wallethopper

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/tkeith/wallet-hopper-2/chaincontext"
	"github.com/tkeith/wallet-hopper-2/clients"
	"github.com/tkeith/wallet-hopper-2/compliance"
	"github.com/tkeith/wallet-hopper-2/logger"
	"github.com/tkeith/wallet-hopper-2/metrics"
	"github.com/tkeith/wallet-hopper-2/pipeline"
	"github.com/tkeith/wallet-hopper-2/preferences"
	"github.com/tkeith/wallet-hopper-2/publication"
	"github.com/tkeith/wallet-hopper-2/remediation"
	"github.com/tkeith/wallet-hopper-2/types"
	"github.com/tkeith/wallet-hopper-2/utils"
)

// Hopper is the main struct that provides all wallet hopper functionality
type Hopper struct {
	config  *types.Config
	logger  logger.Logger
	metrics metrics.Recorder
	timeout time.Duration

	// Set through options before the services are built.
	wallet    clients.Wallet
	reader    clients.ChainReader
	rpcURL    string
	keyHex    string
	store     preferences.ContentStore
	cache     preferences.Cache
	quoter    remediation.Quoter
	events    pipeline.EventSink
	sleep     pipeline.Sleeper
	now       func() time.Time
	closeEVM  func()
	closeOnce sync.Once

	actor      *clients.WalletActor
	contexts   *chaincontext.Resolver
	prefs      *preferences.Client
	compliance *compliance.Resolver
	planner    *remediation.Planner
	pipeline   *pipeline.Pipeline
	publisher  *publication.Service

	stopWatch func()
	watchDone chan struct{}
}

// New builds a Hopper from config. A nil config means types.DefaultConfig.
// The wallet comes from WithWallet or WithEVMWallet.
func New(config *types.Config, opts ...Option) (*Hopper, error) {
	if config == nil {
		config = types.DefaultConfig()
	}
	if err := utils.ValidateConfig(config); err != nil {
		return nil, err
	}

	h := &Hopper{
		config:  config,
		logger:  logger.NoopLogger{},
		timeout: config.HTTPTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.NoopLogger{}
	}
	if h.timeout <= 0 {
		h.timeout = 30 * time.Second
	}

	if err := h.initMetrics(); err != nil {
		return nil, err
	}
	if err := h.initWallet(); err != nil {
		return nil, err
	}
	if err := h.initPreferences(); err != nil {
		h.closeWallet()
		return nil, err
	}

	h.actor = clients.NewWalletActor(h.wallet, h.logger)
	h.contexts = chaincontext.NewResolver(h.wallet, config.PointerRegistry, h.logger)
	h.compliance = compliance.NewResolver(h.prefs, h.contexts, h.logger, h.metrics)

	if h.quoter == nil {
		h.quoter = remediation.NewQuoteClient(config.QuoteURL, config.QuoteAPIKey, config.QuoteRatePerSecond, h.timeout, h.metrics)
	}
	plannerOpts := []remediation.PlannerOption{
		remediation.WithSlippage(config.SlippagePercent),
		remediation.WithRelayerFeePct(config.BridgeRelayerFeePct),
		remediation.WithPlannerLogger(h.logger),
	}
	if h.now != nil {
		plannerOpts = append(plannerOpts, remediation.WithNow(h.now))
	}
	h.planner = remediation.NewPlanner(h.quoter, plannerOpts...)

	pipelineOpts := []pipeline.Option{
		pipeline.WithPolicy(pipeline.PolicyFromConfig(config.Confirm)),
		pipeline.WithLogger(h.logger),
		pipeline.WithMetrics(h.metrics),
		pipeline.WithEventSink(h.events),
	}
	if h.sleep != nil || h.now != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithClock(h.sleep, h.now))
	}
	h.pipeline = pipeline.New(h.actor, h.reader, pipelineOpts...)

	publishOpts := []publication.Option{publication.WithLogger(h.logger)}
	if h.now != nil {
		publishOpts = append(publishOpts, publication.WithNow(h.now))
	}
	h.publisher = publication.NewService(h.prefs, h.contexts, h.pipeline, publishOpts...)

	h.startWatch()
	h.logger.Info("wallet hopper ready", map[string]any{"lookup": config.LookupURL})
	return h, nil
}

func (h *Hopper) initMetrics() error {
	if h.metrics != nil {
		return nil
	}
	if !h.config.EnableMetrics {
		h.metrics = metrics.NoopRecorder{}
		return nil
	}
	rec, err := metrics.NewPrometheusRecorder(nil)
	if err != nil {
		return types.NewError(types.ErrConfigError, "failed to register metrics", err)
	}
	h.metrics = rec
	return nil
}

func (h *Hopper) initWallet() error {
	if h.wallet == nil && h.rpcURL != "" {
		w, err := clients.NewEVMWallet(h.rpcURL, h.keyHex)
		if err != nil {
			return err
		}
		h.wallet = w
		h.closeEVM = w.Close
	}
	if h.wallet == nil {
		return types.Errorf(types.ErrWalletUnavailable, "no wallet configured")
	}
	if h.reader == nil {
		reader, ok := h.wallet.(clients.ChainReader)
		if !ok {
			return types.Errorf(types.ErrConfigError, "wallet cannot read receipts and no chain reader was given")
		}
		h.reader = reader
	}
	return nil
}

func (h *Hopper) initPreferences() error {
	if h.store == nil {
		if s3cfg := h.config.S3; s3cfg != nil {
			ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
			defer cancel()
			store, err := preferences.NewS3ContentStore(ctx, *s3cfg)
			if err != nil {
				return err
			}
			h.store = store
		} else {
			h.store = preferences.NewHTTPContentStore(h.config.StoreURL, h.timeout)
		}
	}

	if h.cache == nil {
		switch {
		case h.config.RedisAddr != "":
			h.cache = preferences.NewRedisCache(h.config.RedisAddr, h.config.CacheTTL, h.logger)
		case h.config.CacheTTL > 0:
			h.cache = preferences.NewMemoryCache(h.config.CacheTTL)
		}
	}

	prefOpts := []preferences.Option{
		preferences.WithLogger(h.logger),
		preferences.WithMetrics(h.metrics),
		preferences.WithHTTPClient(&http.Client{Timeout: h.timeout}),
	}
	if h.cache != nil {
		prefOpts = append(prefOpts, preferences.WithCache(h.cache))
	}
	h.prefs = preferences.NewClient(h.config.LookupURL, h.store, prefOpts...)
	return nil
}

func (h *Hopper) startWatch() {
	ctx, cancel := context.WithCancel(context.Background())
	h.stopWatch = cancel
	h.watchDone = make(chan struct{})
	go func() {
		defer close(h.watchDone)
		if err := h.contexts.Watch(ctx); err != nil {
			h.logger.Warn("network watch stopped", map[string]any{"error": err})
		}
	}()
}

// ChainContext returns the payer's context for the current wallet session.
func (h *Hopper) ChainContext(ctx context.Context) (*types.ChainContext, error) {
	return h.contexts.Resolve(ctx)
}

// Check classifies intent against the recipient's preferences on the payer's
// current chain.
func (h *Hopper) Check(ctx context.Context, intent types.PaymentIntent) (*types.ComplianceResult, error) {
	result, _, err := h.compliance.Resolve(ctx, intent)
	return result, err
}

// Plan binds the action of a non-compliant result without submitting anything.
func (h *Hopper) Plan(ctx context.Context, intent types.PaymentIntent, result *types.ComplianceResult) (*types.Plan, error) {
	if result == nil || result.Status != types.StatusNonCompliant || result.Action == nil {
		return nil, types.Errorf(types.ErrInvalidIntent, "nothing to remediate")
	}
	if err := utils.ValidatePaymentIntent(&intent); err != nil {
		return nil, err
	}
	chainCtx, err := h.contexts.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return h.planner.Plan(ctx, chainCtx, intent, *result.Action)
}

// Remediate plans and executes the action carried by a non-compliant result.
// The outcome lists every transaction attempted, also on failure.
func (h *Hopper) Remediate(ctx context.Context, intent types.PaymentIntent, result *types.ComplianceResult) (*types.RemediationOutcome, error) {
	plan, err := h.Plan(ctx, intent, result)
	if err != nil {
		return nil, err
	}

	outcome, err := remediation.Execute(ctx, h.pipeline, plan)
	if err != nil {
		h.logger.Error("remediation failed", map[string]any{"kind": string(plan.Action.Kind), "error": err})
		return outcome, err
	}
	h.logger.Info("remediation complete", map[string]any{
		"kind":         string(plan.Action.Kind),
		"transactions": len(outcome.Transactions),
	})
	return outcome, nil
}

// Send transfers the intent's asset to its destination on the current chain as is.
func (h *Hopper) Send(ctx context.Context, intent types.PaymentIntent) (*types.TransactionHandle, error) {
	if err := utils.ValidatePaymentIntent(&intent); err != nil {
		return nil, err
	}
	chainCtx, err := h.contexts.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	spec, err := h.planner.PlanSend(chainCtx, intent)
	if err != nil {
		return nil, err
	}
	return h.pipeline.Run(ctx, *spec)
}

// Draft returns the wallet's editable preference document.
func (h *Hopper) Draft(ctx context.Context) (*types.PreferenceDocument, error) {
	return h.publisher.Draft(ctx)
}

// Publish stores a preference document and anchors it on chain.
func (h *Hopper) Publish(ctx context.Context, text string) (*types.PublicationResult, error) {
	return h.publisher.Publish(ctx, text)
}

// Close stops the wallet actor and network watch and releases connections.
func (h *Hopper) Close() {
	h.closeOnce.Do(func() {
		h.stopWatch()
		<-h.watchDone
		h.actor.Stop()
		if c, ok := h.cache.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				h.logger.Warn("cache close failed", map[string]any{"error": err})
			}
		}
		h.closeWallet()
	})
}

func (h *Hopper) closeWallet() {
	if h.closeEVM != nil {
		h.closeEVM()
	}
}

// Version information
const Version = "1.0.0"

// GetVersion returns version information
func GetVersion() map[string]any {
	return map[string]any{
		"library_version":  Version,
		"supported_chains": []string{types.ChainEthereum, types.ChainPolygon},
		"remediations": []string{
			string(types.ActionSwap), string(types.ActionBridge), string(types.ActionPrivacyDeposit),
		},
	}
}
