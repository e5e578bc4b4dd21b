package main

import (
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/Kangkang-wky/cmu15445bustub-private/src/bufferpool"
	"github.com/Kangkang-wky/cmu15445bustub-private/src/config"
	"github.com/Kangkang-wky/cmu15445bustub-private/src/disk"
	"github.com/Kangkang-wky/cmu15445bustub-private/src/pkg/common"
	"github.com/Kangkang-wky/cmu15445bustub-private/src/pkg/utils"
	"github.com/Kangkang-wky/cmu15445bustub-private/src/replacer"
)

func newLogger(env config.EnvVars) *zap.Logger {
	if env.Environment == config.EnvProd {
		return utils.Must(zap.NewProduction())
	}
	return utils.Must(zap.NewDevelopment())
}

func newPool(env config.EnvVars, log *zap.SugaredLogger) (*bufferpool.Manager, *disk.Manager, error) {
	dm, err := disk.Open(afero.NewOsFs(), env.DataPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", env.DataPath, err)
	}

	r := replacer.New(common.FrameID(env.PoolSize), env.ReplacerK)
	pool := bufferpool.New(
		env.PoolSize, env.BucketSize, r, dm,
		bufferpool.WithLogger(log),
		bufferpool.WithFlushConcurrency(env.FlushConcurrency),
	)
	return pool, dm, nil
}
