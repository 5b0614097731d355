// Package compliance decides whether a payment matches a recipient's
// declared settlement preferences.
package compliance

import (
	"strings"

	"github.com/tkeith/wallet-hopper-2/types"
)

// Check classifies intent against doc on currentChain. It does no I/O.
//
// Entries are scanned in order and the first one on currentChain decides the
// result. When no entry is on currentChain only the first entry is
// considered: a privacy marker asks for a shielded deposit, anything else
// for a bridge to that entry's chain.
func Check(intent types.PaymentIntent, doc *types.PreferenceDocument, currentChain string) types.ComplianceResult {
	chain := strings.ToLower(currentChain)
	result := types.ComplianceResult{Status: types.StatusUnknown, Chain: chain}

	if doc == nil || len(doc.PreferredAssets) == 0 {
		return result
	}

	for _, entry := range doc.PreferredAssets {
		if entry.Chain != chain {
			continue
		}
		if entry.Symbol == intent.Asset {
			result.Status = types.StatusCompliant
			return result
		}
		result.Status = types.StatusNonCompliant
		result.Reason = types.ReasonWrongAsset
		result.Action = &types.RemediationAction{
			Kind: types.ActionSwap,
			Swap: &types.SwapAction{
				Chain:     chain,
				FromAsset: intent.Asset,
				ToAsset:   entry.Symbol,
			},
		}
		return result
	}

	first := doc.PreferredAssets[0]
	result.Status = types.StatusNonCompliant

	if types.IsPrivacyProtocol(first.Chain) {
		dest := first.Address
		if dest == "" {
			dest = intent.DestinationAddress
		}
		result.Reason = types.ReasonWantsPrivacyProtocol
		result.Action = &types.RemediationAction{
			Kind: types.ActionPrivacyDeposit,
			PrivacyDeposit: &types.PrivacyDepositAction{
				Chain:         chain,
				ZkDestination: dest,
			},
		}
		return result
	}

	result.Reason = types.ReasonWrongChain
	result.Action = &types.RemediationAction{
		Kind: types.ActionBridge,
		Bridge: &types.BridgeAction{
			OriginChain:      chain,
			DestinationChain: strings.ToLower(first.Chain),
		},
	}
	return result
}
