package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "draw",
		Short: "print the demo domain's topology without serving it",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, _, err := buildDemoDomain(nil)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), d.Draw())
			return nil
		},
	}
}
