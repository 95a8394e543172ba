package cmd

import (
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X exam-mirror/cmd.Version=...".
var Version = "1.2.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("exam-mirror version %s\n", Version)
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
