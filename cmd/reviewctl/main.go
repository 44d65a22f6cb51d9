package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "reviewctl",
		Short:         "Run document reviews from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newCatalogCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newChatCmd())
	root.AddCommand(newWatchCmd())
	return root
}
