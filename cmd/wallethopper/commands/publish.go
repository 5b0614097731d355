package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// publish <file>: store a preference document and anchor it on chain. "-" reads stdin.
func publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <file>",
		Short: "Publish a preference document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readDocument(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			result, err := hopper.Publish(cmd.Context(), text)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "published: %s\n", result.ExplorerURL)
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func readDocument(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(data), nil
}
