package cli

import (
	"github.com/spf13/cobra"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill-defaults",
	Short: "Fill null or empty label columns with entry defaults (one-off repair)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().BackfillDefaults(cmd.Context())
	},
}
