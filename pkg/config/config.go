// Package config defines the ETL daemon's environment-driven configuration
// and validates the mandatory variables the spec requires before the
// daemon is allowed to start.
package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/evandiewald/helium-arango-etl/pkg/errs"
)

// Config holds every tunable the sync controller, ingest pipeline, and
// analytics stage need. Field names mirror the ETL_*/POSTGRES_*/ARANGO_*
// environment variables, minus their prefixes.
type Config struct {
	PostgresURL string

	ArangoURL      string
	ArangoUsername string
	ArangoPassword string

	MinBlockDiffForUpdate int64
	RecentWitnessDaysCutoff int
	ImportBatchSize       int
	InitialSyncChunkSize  int64
	NumHistoricalBlocks   int64
	UpdateIntervalSeconds int
	MinCitySize           int

	SourceQueryTimeout time.Duration
	SinkUpsertTimeout  time.Duration
	DrainTimeout       time.Duration

	LogLevel string
}

// defaults for tuning variables the spec marks optional.
const (
	defaultMinBlockDiffForUpdate   = 50
	defaultRecentWitnessDaysCutoff = 3
	defaultImportBatchSize         = 1000
	defaultInitialSyncChunkSize    = 50000
	defaultNumHistoricalBlocks     = 200000
	defaultUpdateIntervalSeconds   = 300
	defaultMinCitySize             = 50
	defaultSourceQueryTimeout      = 5 * time.Minute
	defaultSinkUpsertTimeout       = 2 * time.Minute
	defaultDrainTimeout            = 60 * time.Second
)

// Load reads and validates configuration out of ko (populated by
// util.InitConfig). It returns an *errs.Error of KindConfig naming every
// missing mandatory variable.
func Load(ko *koanf.Koanf) (*Config, error) {
	cfg := &Config{
		PostgresURL:    ko.String("postgres.url"),
		ArangoURL:      ko.String("arango.url"),
		ArangoUsername: ko.String("arango.username"),
		ArangoPassword: ko.String("arango.password"),

		MinBlockDiffForUpdate:   ko.Int64("etl.min.block.diff.for.update"),
		RecentWitnessDaysCutoff: ko.Int("etl.recent.witness.days.cutoff"),
		ImportBatchSize:         ko.Int("etl.import.batch.size"),
		InitialSyncChunkSize:    ko.Int64("etl.initial.sync.chunk.size"),
		NumHistoricalBlocks:     ko.Int64("etl.num.historical.blocks"),
		UpdateIntervalSeconds:   ko.Int("etl.update.interval.sec"),
		MinCitySize:             ko.Int("min.city.size"),

		LogLevel: ko.String("etl.log.level"),
	}

	if cfg.MinBlockDiffForUpdate == 0 {
		cfg.MinBlockDiffForUpdate = defaultMinBlockDiffForUpdate
	}
	if cfg.RecentWitnessDaysCutoff == 0 {
		cfg.RecentWitnessDaysCutoff = defaultRecentWitnessDaysCutoff
	}
	if cfg.ImportBatchSize == 0 {
		cfg.ImportBatchSize = defaultImportBatchSize
	}
	if cfg.InitialSyncChunkSize == 0 {
		cfg.InitialSyncChunkSize = defaultInitialSyncChunkSize
	}
	if cfg.NumHistoricalBlocks == 0 {
		cfg.NumHistoricalBlocks = defaultNumHistoricalBlocks
	}
	if cfg.UpdateIntervalSeconds == 0 {
		cfg.UpdateIntervalSeconds = defaultUpdateIntervalSeconds
	}
	if cfg.MinCitySize == 0 {
		cfg.MinCitySize = defaultMinCitySize
	}

	cfg.SourceQueryTimeout = durationOrDefault(ko.Int("etl.source.query.timeout.sec"), defaultSourceQueryTimeout)
	cfg.SinkUpsertTimeout = durationOrDefault(ko.Int("etl.sink.upsert.timeout.sec"), defaultSinkUpsertTimeout)
	cfg.DrainTimeout = durationOrDefault(ko.Int("etl.drain.timeout.sec"), defaultDrainTimeout)

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func durationOrDefault(seconds int, def time.Duration) time.Duration {
	if seconds <= 0 {
		return def
	}
	return time.Duration(seconds) * time.Second
}

func (c *Config) validate() error {
	missing := make([]string, 0, 3)
	if c.PostgresURL == "" {
		missing = append(missing, "POSTGRES_URL")
	}
	if c.ArangoURL == "" {
		missing = append(missing, "ARANGO_URL")
	}
	if c.ArangoUsername == "" {
		missing = append(missing, "ARANGO_USERNAME")
	}
	if c.ArangoPassword == "" {
		missing = append(missing, "ARANGO_PASSWORD")
	}
	if len(missing) > 0 {
		return errs.New(errs.KindConfig, "config.Load", fmt.Errorf("missing required environment variables: %v", missing))
	}
	return nil
}
