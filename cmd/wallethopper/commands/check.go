package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tkeith/wallet-hopper-2/types"
)

// check <recipient> <asset> <amount>: classify a payment and optionally fix it.
func checkCmd() *cobra.Command {
	var remediate bool
	cmd := &cobra.Command{
		Use:   "check <recipient> <asset> <amount>",
		Short: "Check a payment against the recipient's preferences",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent := intentFromArgs(args)
			result, err := hopper.Check(cmd.Context(), intent)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}

			if !remediate || result.Status != types.StatusNonCompliant {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "remediating: %s\n", result.Action.Kind)
			outcome, err := hopper.Remediate(cmd.Context(), intent, result)
			if outcome != nil {
				_ = printJSON(cmd.OutOrStdout(), outcome)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&remediate, "remediate", false, "run the suggested swap, bridge or deposit")
	return cmd
}

func intentFromArgs(args []string) types.PaymentIntent {
	return types.PaymentIntent{
		DestinationAddress: args[0],
		Asset:              args[1],
		Amount:             args[2],
	}
}
