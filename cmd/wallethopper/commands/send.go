package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tkeith/wallet-hopper-2/types"
)

// send <recipient> <asset> <amount>: pay as is, after an advisory check.
func sendCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "send <recipient> <asset> <amount>",
		Short: "Send a payment on the current chain",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent := intentFromArgs(args)
			result, err := hopper.Check(cmd.Context(), intent)
			if err != nil {
				return err
			}
			if result.Status == types.StatusNonCompliant && !force {
				return fmt.Errorf("recipient prefers another asset or chain (%s); use check --remediate or send --force", result.Reason)
			}

			handle, err := hopper.Send(cmd.Context(), intent)
			if handle != nil {
				_ = printJSON(cmd.OutOrStdout(), handle)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "send even when the recipient prefers something else")
	return cmd
}
