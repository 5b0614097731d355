// Package remediation turns a remediation action into bound transaction
// pipelines and executes them.
package remediation

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tkeith/wallet-hopper-2/clients"
	"github.com/tkeith/wallet-hopper-2/logger"
	"github.com/tkeith/wallet-hopper-2/types"
	"github.com/tkeith/wallet-hopper-2/utils"
)

// DefaultAllowance is the fixed allowance granted to protocol contracts.
var DefaultAllowance = new(big.Int).Exp(big.NewInt(10), big.NewInt(22), nil)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Planner binds actions to concrete contract calls.
type Planner struct {
	quoter        Quoter
	slippage      float64
	relayerFeePct int64
	allowance     *big.Int
	now           func() time.Time
	log           logger.Logger
}

type PlannerOption func(*Planner)

func WithSlippage(pct float64) PlannerOption {
	return func(p *Planner) { p.slippage = pct }
}

func WithRelayerFeePct(pct int64) PlannerOption {
	return func(p *Planner) { p.relayerFeePct = pct }
}

func WithAllowance(amount *big.Int) PlannerOption {
	return func(p *Planner) {
		if amount != nil && amount.Sign() > 0 {
			p.allowance = amount
		}
	}
}

func WithPlannerLogger(l logger.Logger) PlannerOption {
	return func(p *Planner) {
		if l != nil {
			p.log = l
		}
	}
}

// WithNow fixes the clock used for bridge quote timestamps.
func WithNow(now func() time.Time) PlannerOption {
	return func(p *Planner) { p.now = now }
}

func NewPlanner(quoter Quoter, opts ...PlannerOption) *Planner {
	p := &Planner{
		quoter:        quoter,
		slippage:      1,
		relayerFeePct: 1,
		allowance:     DefaultAllowance,
		now:           time.Now,
		log:           logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan resolves every address and argument of action for the payer in chainCtx.
// Swaps request their quote here, so a quote failure never reaches the wallet.
func (p *Planner) Plan(ctx context.Context, chainCtx *types.ChainContext, intent types.PaymentIntent, action types.RemediationAction) (*types.Plan, error) {
	if chainCtx == nil {
		return nil, types.Errorf(types.ErrWalletUnavailable, "chain context is required")
	}
	if !action.Valid() {
		return nil, types.Errorf(types.ErrInvalidIntent, "malformed %s action", action.Kind)
	}
	if !utils.ValidateAddress(intent.DestinationAddress) && action.Kind != types.ActionPrivacyDeposit {
		return nil, types.Errorf(types.ErrInvalidIntent, "invalid destination address %q", intent.DestinationAddress)
	}

	var (
		plan *types.Plan
		err  error
	)
	switch action.Kind {
	case types.ActionSwap:
		plan, err = p.planSwap(ctx, chainCtx, intent, *action.Swap)
	case types.ActionBridge:
		plan, err = p.planBridge(chainCtx, intent, *action.Bridge)
	case types.ActionPrivacyDeposit:
		plan, err = p.planPrivacyDeposit(chainCtx, intent, *action.PrivacyDeposit)
	}
	if err != nil {
		p.log.Warn("remediation planning failed", map[string]any{"kind": string(action.Kind), "error": err})
		return nil, err
	}

	p.log.Debug("remediation planned", map[string]any{
		"kind":      string(action.Kind),
		"chain":     plan.Chain,
		"pipelines": len(plan.Pipelines),
	})
	return plan, nil
}

func (p *Planner) planSwap(ctx context.Context, chainCtx *types.ChainContext, intent types.PaymentIntent, swap types.SwapAction) (*types.Plan, error) {
	chain := chainCtx.Chain.Name
	protocols, err := lookupProtocols(chain)
	if err != nil {
		return nil, err
	}
	src, err := lookupToken(swap.FromAsset, chain)
	if err != nil {
		return nil, err
	}
	dst, err := lookupToken(swap.ToAsset, chain)
	if err != nil {
		return nil, err
	}
	amount, err := baseUnits(intent.Amount, src)
	if err != nil {
		return nil, err
	}
	if p.quoter == nil {
		return nil, types.Errorf(types.ErrQuoteUnavailable, "no swap aggregator configured")
	}

	quote, err := p.quoter.Quote(ctx, QuoteRequest{
		ChainID:  chainCtx.ChainID,
		Src:      src.AggregatorAddress(),
		Dst:      dst.AggregatorAddress(),
		Amount:   amount,
		From:     chainCtx.Address,
		Slippage: p.slippage,
	})
	if err != nil {
		if types.CodeOf(err) == types.ErrQuoteUnavailable {
			return nil, err
		}
		return nil, types.NewError(types.ErrQuoteUnavailable, "swap quote failed", err)
	}

	swapCall := quote.Tx
	swapCall.Description = fmt.Sprintf("swap %s to %s", src.Symbol, dst.Symbol)
	swapSpec := p.spec(chainCtx, "swap", swapCall)
	if !src.Native {
		approve, err := clients.ApproveCall(src.Address, protocols.SwapSpender, p.allowance, src.Symbol)
		if err != nil {
			return nil, err
		}
		swapSpec.Approve = &approve
	}

	// the swap may fill anywhere down to the slippage floor
	minOut := utils.MinimumAfterSlippage(quote.ToAmount, p.slippage)
	if minOut.Sign() <= 0 {
		return nil, types.Errorf(types.ErrQuoteUnavailable, "quote leaves nothing to send after %.2f%% slippage", p.slippage)
	}
	p.log.Debug("swap quoted", map[string]any{
		"to_asset":   dst.Symbol,
		"quoted":     utils.FormatAmountFromBigInt(quote.ToAmount, dst.Decimals),
		"min_output": utils.FormatAmountFromBigInt(minOut, dst.Decimals),
	})

	send, err := transferCall(dst, common.HexToAddress(intent.DestinationAddress), minOut)
	if err != nil {
		return nil, err
	}

	swap.Chain = chain
	swap.AggregatorQuoteURL = quote.URL
	return &types.Plan{
		Action:    types.RemediationAction{Kind: types.ActionSwap, Swap: &swap},
		Chain:     chain,
		ChainID:   chainCtx.ChainID,
		Pipelines: []types.PipelineSpec{swapSpec, p.spec(chainCtx, "send", send)},
	}, nil
}

func (p *Planner) planBridge(chainCtx *types.ChainContext, intent types.PaymentIntent, bridge types.BridgeAction) (*types.Plan, error) {
	origin := chainCtx.Chain.Name
	protocols, err := lookupProtocols(origin)
	if err != nil {
		return nil, err
	}
	if protocols.BridgeRelay == (common.Address{}) {
		return nil, types.Errorf(types.ErrUnsupportedChain, "no bridge relay on %s", origin)
	}
	destChainID, ok := types.ChainIDByName(bridge.DestinationChain)
	if !ok {
		return nil, types.Errorf(types.ErrUnsupportedChain, "unsupported destination chain %q", bridge.DestinationChain)
	}
	if destChainID == chainCtx.ChainID {
		return nil, types.Errorf(types.ErrInvalidIntent, "bridge destination equals origin chain %s", origin)
	}
	token, err := lookupToken(intent.Asset, origin)
	if err != nil {
		return nil, err
	}
	amount, err := baseUnits(intent.Amount, token)
	if err != nil {
		return nil, err
	}

	originToken := token.Address
	var value *big.Int
	if token.Native {
		originToken = token.Wrapped
		value = amount
	}

	deposit, err := clients.PackCall(clients.SpokePoolABI, protocols.BridgeRelay, value,
		fmt.Sprintf("bridge %s to %s", token.Symbol, bridge.DestinationChain), "deposit",
		common.HexToAddress(intent.DestinationAddress),
		originToken,
		amount,
		big.NewInt(destChainID),
		p.relayerFeePct,
		uint32(p.now().Unix()),
		[]byte{},
		maxUint256,
	)
	if err != nil {
		return nil, err
	}

	spec := p.spec(chainCtx, "bridge", deposit)
	if !token.Native {
		approve, err := clients.ApproveCall(token.Address, protocols.BridgeRelay, p.allowance, token.Symbol)
		if err != nil {
			return nil, err
		}
		spec.Approve = &approve
	}

	bridge.OriginChain = origin
	bridge.RelayContract = protocols.BridgeRelay.Hex()
	return &types.Plan{
		Action:    types.RemediationAction{Kind: types.ActionBridge, Bridge: &bridge},
		Chain:     origin,
		ChainID:   chainCtx.ChainID,
		Pipelines: []types.PipelineSpec{spec},
	}, nil
}

func (p *Planner) planPrivacyDeposit(chainCtx *types.ChainContext, intent types.PaymentIntent, deposit types.PrivacyDepositAction) (*types.Plan, error) {
	chain := chainCtx.Chain.Name
	protocols, err := lookupProtocols(chain)
	if err != nil {
		return nil, err
	}
	if protocols.PrivacyDeposit == (common.Address{}) {
		return nil, types.Errorf(types.ErrUnsupportedChain, "no privacy deposit contract on %s", chain)
	}
	if deposit.ZkDestination == "" {
		return nil, types.Errorf(types.ErrInvalidIntent, "shielded destination is required")
	}
	token, err := lookupToken(intent.Asset, chain)
	if err != nil {
		return nil, err
	}
	amount, err := baseUnits(intent.Amount, token)
	if err != nil {
		return nil, err
	}

	contract := protocols.PrivacyDeposit
	description := "privacy deposit " + token.Symbol
	var spec types.PipelineSpec
	if token.Native {
		call, err := clients.PackCall(clients.DirectDepositABI, contract, amount, description,
			"directNativeDeposit", chainCtx.Address, deposit.ZkDestination)
		if err != nil {
			return nil, err
		}
		spec = p.spec(chainCtx, "privacy_deposit", call)
	} else {
		call, err := clients.PackCall(clients.DirectDepositABI, contract, nil, description,
			"directDeposit", chainCtx.Address, amount, deposit.ZkDestination)
		if err != nil {
			return nil, err
		}
		approve, err := clients.ApproveCall(token.Address, contract, p.allowance, token.Symbol)
		if err != nil {
			return nil, err
		}
		spec = p.spec(chainCtx, "privacy_deposit", call)
		spec.Approve = &approve
	}

	deposit.Chain = chain
	deposit.DepositContract = contract.Hex()
	return &types.Plan{
		Action:    types.RemediationAction{Kind: types.ActionPrivacyDeposit, PrivacyDeposit: &deposit},
		Chain:     chain,
		ChainID:   chainCtx.ChainID,
		Pipelines: []types.PipelineSpec{spec},
	}, nil
}

// PlanSend binds a plain transfer of the intent's asset to its destination.
func (p *Planner) PlanSend(chainCtx *types.ChainContext, intent types.PaymentIntent) (*types.PipelineSpec, error) {
	if chainCtx == nil {
		return nil, types.Errorf(types.ErrWalletUnavailable, "chain context is required")
	}
	if !utils.ValidateAddress(intent.DestinationAddress) {
		return nil, types.Errorf(types.ErrInvalidIntent, "invalid destination address %q", intent.DestinationAddress)
	}
	token, err := lookupToken(intent.Asset, chainCtx.Chain.Name)
	if err != nil {
		return nil, err
	}
	amount, err := baseUnits(intent.Amount, token)
	if err != nil {
		return nil, err
	}
	call, err := transferCall(token, common.HexToAddress(intent.DestinationAddress), amount)
	if err != nil {
		return nil, err
	}
	spec := p.spec(chainCtx, "send", call)
	return &spec, nil
}

func (p *Planner) spec(chainCtx *types.ChainContext, name string, act types.Call) types.PipelineSpec {
	return types.PipelineSpec{
		Name:    name,
		Chain:   chainCtx.Chain.Name,
		ChainID: chainCtx.ChainID,
		Act:     act,
	}
}

func transferCall(token types.Token, to common.Address, amount *big.Int) (types.Call, error) {
	if token.Native {
		return clients.NativeTransferCall(to, amount, token.Symbol), nil
	}
	return clients.TransferCall(token.Address, to, amount, token.Symbol)
}

func lookupToken(symbol, chain string) (types.Token, error) {
	t, ok := types.LookupToken(symbol, chain)
	if !ok {
		return types.Token{}, types.Errorf(types.ErrUnknownAsset, "unknown asset %s on %s", symbol, chain)
	}
	return t, nil
}

func lookupProtocols(chain string) (types.ProtocolContracts, error) {
	p, ok := types.LookupProtocols(chain)
	if !ok {
		return types.ProtocolContracts{}, types.Errorf(types.ErrUnsupportedChain, "unsupported chain %s", chain)
	}
	return p, nil
}

func baseUnits(amount string, token types.Token) (*big.Int, error) {
	v, err := utils.ParseAmountWithDecimals(amount, token.Decimals)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidIntent, "invalid amount", err)
	}
	return v, nil
}
