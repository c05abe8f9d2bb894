package commands

import (
	"github.com/spf13/cobra"

	appversion "github.com/dantte-lp/gop4tg/internal/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(appversion.Full("gop4tgctl"))
		},
	}
}
