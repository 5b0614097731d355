package pipeline

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/tkeith/wallet-hopper-2/types"
)

type Stage string

const (
	StageApprove Stage = "approve"
	StageAct     Stage = "act"
)

// Event reports one pipeline transition. Message is safe to show to a user;
// the underlying error detail only goes to the logger.
type Event struct {
	Pipeline string
	Chain    string
	Stage    Stage
	State    types.TxState
	TxHash   common.Hash
	Attempt  int
	Code     string
	Message  string
}

// EventSink receives pipeline events in order. It must not block for long.
type EventSink func(Event)

func discardEvents(Event) {}
