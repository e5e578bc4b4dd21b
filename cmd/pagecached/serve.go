package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Kangkang-wky/cmu15445bustub-private/src/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the buffer pool manager until interrupted, flushing dirty pages on shutdown",
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

			log.Infow("serving", "pool_size", env.PoolSize, "bucket_size", env.BucketSize,
				"replacer_k", env.ReplacerK, "data_path", env.DataPath)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh

			log.Info("shutdown signal received, flushing dirty pages")
			if err := pool.FlushAllPages(); err != nil {
				return fmt.Errorf("flushing on shutdown: %w", err)
			}
			return nil
		},
	}
}
