package remediation

import (
	"context"

	"github.com/tkeith/wallet-hopper-2/types"
)

// Runner executes one bound pipeline. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, spec types.PipelineSpec) (*types.TransactionHandle, error)
}

type executor func(ctx context.Context, runner Runner, plan *types.Plan) ([]types.TransactionHandle, error)

// executors maps each action kind to the pipeline shape it expects.
var executors = map[types.ActionKind]executor{
	types.ActionSwap:           sequence(2),
	types.ActionBridge:         sequence(1),
	types.ActionPrivacyDeposit: sequence(1),
}

// sequence runs exactly n pipelines in order and stops at the first failure.
func sequence(n int) executor {
	return func(ctx context.Context, runner Runner, plan *types.Plan) ([]types.TransactionHandle, error) {
		if len(plan.Pipelines) != n {
			return nil, types.Errorf(types.ErrInvalidIntent, "%s plan has %d pipelines, want %d",
				plan.Action.Kind, len(plan.Pipelines), n)
		}
		handles := make([]types.TransactionHandle, 0, n)
		for _, spec := range plan.Pipelines {
			handle, err := runner.Run(ctx, spec)
			if handle != nil {
				handles = append(handles, *handle)
			}
			if err != nil {
				return handles, err
			}
		}
		return handles, nil
	}
}

// Execute runs a plan. On failure the outcome still carries the handles of
// every transaction that was attempted.
func Execute(ctx context.Context, runner Runner, plan *types.Plan) (*types.RemediationOutcome, error) {
	if plan == nil {
		return nil, types.Errorf(types.ErrInvalidIntent, "plan is required")
	}
	exec, ok := executors[plan.Action.Kind]
	if !ok {
		return nil, types.Errorf(types.ErrInvalidIntent, "unknown remediation kind %q", plan.Action.Kind)
	}

	handles, err := exec(ctx, runner, plan)
	outcome := &types.RemediationOutcome{
		Action:       plan.Action,
		Transactions: handles,
	}
	return outcome, err
}
