package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of gmail-agent",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Info())
		},
	}
}
