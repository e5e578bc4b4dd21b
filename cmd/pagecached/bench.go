package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kangkang-wky/cmu15445bustub-private/src/config"
	"github.com/Kangkang-wky/cmu15445bustub-private/src/pkg/common"
)

func newBenchCmd() *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Create and re-fetch a run of pages to exercise eviction and writeback",
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

			start := time.Now()

			ids := make([]common.PageID, 0, pages)
			for i := 0; i < pages; i++ {
				id, frame, err := pool.NewPage()
				if err != nil {
					return fmt.Errorf("new_page #%d: %w", i, err)
				}
				frame.Data()[0] = byte(i)
				pool.UnpinPage(id, true)
				ids = append(ids, id)
			}

			for _, id := range ids {
				if _, err := pool.FetchPage(id); err != nil {
					return fmt.Errorf("fetch_page %d: %w", id, err)
				}
				pool.UnpinPage(id, false)
			}

			if err := pool.FlushAllPages(); err != nil {
				return fmt.Errorf("flush_all_pages: %w", err)
			}

			log.Infow("bench complete", "pages", pages, "pool_size", env.PoolSize, "elapsed", time.Since(start))
			return nil
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 10_000, "number of pages to create and then re-fetch")
	return cmd
}
