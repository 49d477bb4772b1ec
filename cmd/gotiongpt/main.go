// GotionGPT is a conversational front-end for battery cell size prediction:
// numeric pack specifications are routed to a remote prediction model,
// everything else becomes a DeepSeek follow-up question.
package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
