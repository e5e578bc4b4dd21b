package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pagecached",
		Short: "Drive the extendible-hash / LRU-K buffer pool manager from the command line",
	}
	root.AddCommand(newServeCmd(), newBenchCmd(), newInspectCmd())
	return root
}
