package remediation

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkeith/wallet-hopper-2/types"
)

type scriptedRunner struct {
	ran    []string
	failAt string
	err    error
}

func (r *scriptedRunner) Run(_ context.Context, spec types.PipelineSpec) (*types.TransactionHandle, error) {
	r.ran = append(r.ran, spec.Name)
	h := &types.TransactionHandle{
		Hash:    common.BytesToHash([]byte(spec.Name)),
		Chain:   spec.Chain,
		ChainID: spec.ChainID,
		State:   types.TxConfirmed,
	}
	if spec.Name == r.failAt {
		h.State = types.TxFailed
		return h, r.err
	}
	return h, nil
}

func swapPlan() *types.Plan {
	action := swapAction("ETH", "USDC")
	return &types.Plan{
		Action:  action,
		Chain:   types.ChainEthereum,
		ChainID: 1,
		Pipelines: []types.PipelineSpec{
			{Name: "swap", Chain: types.ChainEthereum, ChainID: 1},
			{Name: "send", Chain: types.ChainEthereum, ChainID: 1},
		},
	}
}

func TestExecute_RunsPipelinesInOrder(t *testing.T) {
	runner := &scriptedRunner{}
	outcome, err := Execute(context.Background(), runner, swapPlan())
	require.NoError(t, err)

	assert.Equal(t, []string{"swap", "send"}, runner.ran)
	require.Len(t, outcome.Transactions, 2)
	assert.Equal(t, types.TxConfirmed, outcome.Transactions[1].State)
	assert.Equal(t, types.ActionSwap, outcome.Action.Kind)
}

func TestExecute_StopsAtFirstFailure(t *testing.T) {
	runner := &scriptedRunner{failAt: "swap", err: types.Errorf(types.ErrUserRejected, "denied")}
	outcome, err := Execute(context.Background(), runner, swapPlan())

	assert.True(t, types.IsCode(err, types.ErrUserRejected))
	assert.Equal(t, []string{"swap"}, runner.ran)
	require.Len(t, outcome.Transactions, 1)
	assert.Equal(t, types.TxFailed, outcome.Transactions[0].State)
}

func TestExecute_RejectsMismatchedPlan(t *testing.T) {
	plan := swapPlan()
	plan.Pipelines = plan.Pipelines[:1]

	runner := &scriptedRunner{}
	_, err := Execute(context.Background(), runner, plan)
	assert.True(t, types.IsCode(err, types.ErrInvalidIntent))
	assert.Empty(t, runner.ran)

	_, err = Execute(context.Background(), runner, &types.Plan{Action: types.RemediationAction{Kind: "teleport"}})
	assert.True(t, types.IsCode(err, types.ErrInvalidIntent))

	_, err = Execute(context.Background(), runner, nil)
	assert.Error(t, err)
}
