package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kangkang-wky/cmu15445bustub-private/src/config"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Open the data file and print the page table's resident frames and directory depth",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := config.MustLoad()

			zapLog := newLogger(env)
			defer zapLog.Sync() //nolint:errcheck
			log := zapLog.Sugar()

			pool, dm, err := newPool(env, log)
			if err != nil {
				return err
			}
			defer dm.Close() //nolint:errcheck

			frames, globalDepth := pool.Entries()
			fmt.Printf("global depth: %d\n", globalDepth)
			fmt.Printf("resident frames: %d\n", len(frames))
			for _, f := range frames {
				fmt.Printf("  frame %d: page %d pinned=%d dirty=%t\n", f.FrameID, f.PageID, f.PinCount, f.Dirty)
			}
			return nil
		},
	}
}
