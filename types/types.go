package types

import (
	"maps"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

// PreferredAsset is one (chain, asset) entry a recipient accepts.
type PreferredAsset struct {
	// Chain name as published by the recipient (e.g. "ethereum", "polygon", "privacy-protocol").
	Chain string `json:"chain" validate:"required"`

	// Address to receive on that chain. For privacy-protocol entries this is the shielded address.
	Address string `json:"address"`

	// Symbol of the asset (e.g. "USDC").
	Symbol string `json:"symbol" validate:"required"`
}

// PreferenceDocument is the recipient-owned settlement preference record.
// Field names match the published JSON format.
type PreferenceDocument struct {
	Timestamp       string           `json:"timestamp" validate:"required"`
	PrimaryAddress  string           `json:"primaryAddress" validate:"required,eth_addr"`
	PrimaryChain    string           `json:"primaryChain" validate:"required"`
	PreferredAssets []PreferredAsset `json:"preferredAssets" validate:"required,min=1,dive"`
	Addresses       []string         `json:"addresses" validate:"dive,eth_addr"`
	Attestations    map[string]any   `json:"attestations"`
}

// Clone returns a deep copy of d. Attestation values are copied shallowly.
func (d *PreferenceDocument) Clone() *PreferenceDocument {
	if d == nil {
		return nil
	}
	c := *d
	c.PreferredAssets = slices.Clone(d.PreferredAssets)
	c.Addresses = slices.Clone(d.Addresses)
	c.Attestations = maps.Clone(d.Attestations)
	return &c
}

// PaymentIntent is the payment the payer proposes to make.
type PaymentIntent struct {
	DestinationAddress string `json:"destinationAddress" validate:"required"`
	Asset              string `json:"asset" validate:"required"`

	// Amount in whole units of the asset, as a decimal string (e.g. "12.5").
	Amount string `json:"amount" validate:"required"`
}

// ComplianceStatus classifies a payment against recipient preferences.
type ComplianceStatus string

const (
	StatusCompliant    ComplianceStatus = "compliant"
	StatusNonCompliant ComplianceStatus = "non_compliant"
	StatusUnknown      ComplianceStatus = "unknown"
)

// NonComplianceReason explains why a payment does not comply.
type NonComplianceReason string

const (
	ReasonWrongAsset           NonComplianceReason = "wrong_asset"
	ReasonWrongChain           NonComplianceReason = "wrong_chain"
	ReasonWantsPrivacyProtocol NonComplianceReason = "wants_privacy_protocol"
)

// ComplianceResult is produced fresh on every check and never persisted.
// A non-compliant result always carries exactly one Action; the other
// statuses never carry one.
type ComplianceResult struct {
	Status ComplianceStatus    `json:"status"`
	Reason NonComplianceReason `json:"reason,omitempty"`
	Action *RemediationAction  `json:"action,omitempty"`

	// Chain the check was evaluated against.
	Chain string `json:"chain"`
}

// IsCompliant reports whether the payment can go ahead unchanged.
func (r *ComplianceResult) IsCompliant() bool {
	return r != nil && r.Status == StatusCompliant
}

// ActionKind tags a RemediationAction.
type ActionKind string

const (
	ActionSwap           ActionKind = "swap"
	ActionBridge         ActionKind = "bridge"
	ActionPrivacyDeposit ActionKind = "privacy_deposit"
)

// SwapAction converts the payer's asset into the recipient's preferred asset on the same chain.
type SwapAction struct {
	Chain              string `json:"chain"`
	FromAsset          string `json:"fromAsset"`
	ToAsset            string `json:"toAsset"`
	AggregatorQuoteURL string `json:"aggregatorQuoteUrl,omitempty"`
}

// BridgeAction moves the payment to the chain the recipient prefers.
type BridgeAction struct {
	OriginChain      string `json:"originChain"`
	DestinationChain string `json:"destinationChain"`
	RelayContract    string `json:"relayContract,omitempty"`
}

// PrivacyDepositAction pays the recipient through a shielded-pool direct deposit.
type PrivacyDepositAction struct {
	Chain           string `json:"chain"`
	ZkDestination   string `json:"zkDestination"`
	DepositContract string `json:"depositContract,omitempty"`
}

// RemediationAction is a tagged variant: exactly one payload matching Kind is set.
// Contract and quote fields are empty until the action has been planned.
type RemediationAction struct {
	Kind           ActionKind            `json:"kind"`
	Swap           *SwapAction           `json:"swap,omitempty"`
	Bridge         *BridgeAction         `json:"bridge,omitempty"`
	PrivacyDeposit *PrivacyDepositAction `json:"privacyDeposit,omitempty"`
}

// Valid reports whether the payload matches the tag.
func (a *RemediationAction) Valid() bool {
	if a == nil {
		return false
	}
	set := 0
	if a.Swap != nil {
		set++
	}
	if a.Bridge != nil {
		set++
	}
	if a.PrivacyDeposit != nil {
		set++
	}
	if set != 1 {
		return false
	}
	switch a.Kind {
	case ActionSwap:
		return a.Swap != nil
	case ActionBridge:
		return a.Bridge != nil
	case ActionPrivacyDeposit:
		return a.PrivacyDeposit != nil
	default:
		return false
	}
}

// Call is a single write to submit through the wallet.
type Call struct {
	To    common.Address `json:"to"`
	Data  []byte         `json:"data,omitempty"`
	Value *big.Int       `json:"value,omitempty"`

	// Description is a short human label for events ("approve USDC").
	Description string `json:"description"`
}

// PipelineSpec binds the stages of one transaction pipeline.
type PipelineSpec struct {
	Name    string `json:"name"`
	Chain   string `json:"chain"`
	ChainID int64  `json:"chainId"`
	Approve *Call  `json:"approve,omitempty"`
	Act     Call   `json:"act"`
}

// Plan is a fully bound remediation: the planned action plus the pipelines that carry it out, in order.
type Plan struct {
	Action    RemediationAction `json:"action"`
	Chain     string            `json:"chain"`
	ChainID   int64             `json:"chainId"`
	Pipelines []PipelineSpec    `json:"pipelines"`
}

// TxState is the pipeline state of a submitted or submitting transaction.
type TxState string

const (
	TxSubmitting TxState = "submitting"
	TxSubmitted  TxState = "submitted"
	TxPolling    TxState = "polling"
	TxConfirmed  TxState = "confirmed"
	TxFailed     TxState = "failed"
	TxTimedOut   TxState = "timed_out"
)

// TransactionHandle identifies a submitted write.
type TransactionHandle struct {
	Hash     common.Hash `json:"hash"`
	Chain    string      `json:"chain"`
	ChainID  int64       `json:"chainId"`
	State    TxState     `json:"state"`
	Attempts int         `json:"attempts"`
	Reverted bool        `json:"reverted,omitempty"`
}

// RemediationOutcome is the result of executing a Plan.
type RemediationOutcome struct {
	Action       RemediationAction   `json:"action"`
	Transactions []TransactionHandle `json:"transactions"`
}

// PublicationResult is returned after a preference document has been stored and anchored.
type PublicationResult struct {
	ContentHandle string            `json:"contentHandle"`
	Pointer       string            `json:"pointer"`
	Transaction   TransactionHandle `json:"transaction"`
	ExplorerURL   string            `json:"explorerUrl,omitempty"`
}

// ChainContext is the payer's resolved wallet state for one wallet session.
// It is never mutated; a new session produces a new value.
type ChainContext struct {
	SessionID string         `json:"sessionId"`
	ChainID   int64          `json:"chainId"`
	Chain     ChainMetadata  `json:"chain"`
	Address   common.Address `json:"address"`

	// Contract is the pointer registry on this chain, nil when none is configured.
	Contract *common.Address `json:"contract,omitempty"`
}

// CanWrite reports whether preference pointers can be anchored on this chain.
func (c *ChainContext) CanWrite() bool {
	return c != nil && c.Contract != nil
}
