package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gotiongpt",
		Short: "Conversational battery cell size assistant",
		Long: `GotionGPT pairs a battery-size prediction model with DeepSeek chat
completion behind a small web chat. Messages containing a full pack
specification (length, width, height, energy, voltage) are sent to the
prediction service; everything else is answered as a follow-up question
grounded in the conversation so far.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())

	return root
}
