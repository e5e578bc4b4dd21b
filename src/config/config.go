// Package config loads the page cache's runtime settings from the
// environment, following the same .env-then-envconfig pattern the rest
// of the project uses for its entrypoints.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "PAGECACHED"

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// EnvVars holds every setting the cache entrypoints need, sourced from
// environment variables (optionally staged via a .env file).
type EnvVars struct {
	Environment string `envconfig:"ENVIRONMENT" default:"dev"`

	PoolSize   int    `envconfig:"POOL_SIZE" default:"64"`
	BucketSize int    `envconfig:"BUCKET_SIZE" default:"4"`
	ReplacerK  uint64 `envconfig:"REPLACER_K" default:"2"`

	DataPath string `envconfig:"DATA_PATH" default:"pagecached.db"`

	FlushConcurrency int `envconfig:"FLUSH_CONCURRENCY" default:"0"`
}

// MustLoad loads a .env file if present (missing is not an error) and
// then populates EnvVars from the process environment. It panics on a
// malformed or missing required value, mirroring the other entrypoints'
// fail-fast startup.
func MustLoad() EnvVars {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		panic(fmt.Errorf("config: loading .env: %w", err))
	}

	var e EnvVars
	if err := envconfig.Process(envPrefix, &e); err != nil {
		panic(fmt.Errorf("config: processing environment: %w", err))
	}
	return e
}
