package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version information, injected at build time via ldflags.
var (
	appVersion = "development"
	buildTime  = "unknown"
	gitCommit  = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("GotionGPT %s\n", appVersion)
			fmt.Printf("Build Time: %s\n", buildTime)
			fmt.Printf("Git Commit: %s\n", gitCommit)
			fmt.Printf("Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
