package commands

import (
	"github.com/spf13/cobra"

	"github.com/tkeith/wallet-hopper-2/utils"
)

func draftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "draft",
		Short: "Print the wallet's preference document for editing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := hopper.Draft(cmd.Context())
			if err != nil {
				return err
			}
			data, err := utils.SerializePreferenceDocument(doc)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		},
	}
}
