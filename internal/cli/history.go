package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/verdict/internal/model"
	"github.com/ppiankov/verdict/internal/present"
)

// historyCmd shows sample entries; checks are not recorded
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show example check history",
	Long: `History shows how past checks are summarized. Checks are not stored,
so the entries are fixed examples.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return present.RenderHistory(cmd.OutOrStdout(), model.SampleHistory(), present.TextOptions{Color: colorEnabled()})
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
