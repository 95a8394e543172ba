package cmd

import (
	"fmt"
	"os"

	"exam-mirror/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "exam-mirror",
	Short: "Mirror the exam paper catalog into the community exam collection",
	Long: `exam-mirror walks the exam paper catalog page by page and uploads every paper
that is not yet present at the destination. Papers are compared by SHA-256, so
re-running after an interruption only uploads what is still missing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format with the development config gives ISO8601 timestamps for CLI users.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
