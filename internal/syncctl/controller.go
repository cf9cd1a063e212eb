// Package syncctl implements the ETL daemon's sync/follow state machine:
// INIT → INVENTORY_SYNC → DYNAMIC_SYNC → FOLLOW, looping back to
// INVENTORY_SYNC whenever the source has drifted far enough ahead. It is
// modeled directly on the teacher's backfill/realtime Syncer, with the
// two-mode switch generalized into the four named phases this system
// needs.
package syncctl

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/evandiewald/helium-arango-etl/internal/analytics"
	"github.com/evandiewald/helium-arango-etl/internal/ingest"
	"github.com/evandiewald/helium-arango-etl/internal/progress"
	"github.com/evandiewald/helium-arango-etl/internal/query"
	"github.com/evandiewald/helium-arango-etl/internal/retry"
	"github.com/evandiewald/helium-arango-etl/internal/sink"
	"github.com/evandiewald/helium-arango-etl/internal/source"
	"github.com/evandiewald/helium-arango-etl/pkg/config"
	"github.com/evandiewald/helium-arango-etl/pkg/errs"
	"github.com/evandiewald/helium-arango-etl/pkg/models"
)

var (
	syncHeightGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "etl_sync_height",
		Help: "Block height the controller has fully ingested up to.",
	})
	sourceHeightGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "etl_source_height",
		Help: "Latest block height reported by the source database.",
	})
	blocksBehindGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "etl_blocks_behind",
		Help: "Difference between source height and sync height.",
	})
	phaseGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "etl_phase",
		Help: "1 for the controller's current phase, 0 otherwise.",
	}, []string{"phase"})
	controllerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etl_controller_errors_total",
		Help: "Sync controller errors, by phase.",
	}, []string{"phase"})
)

// Phase is one state of the sync/follow state machine.
type Phase string

const (
	PhaseInit          Phase = "INIT"
	PhaseInventorySync Phase = "INVENTORY_SYNC"
	PhaseDynamicSync   Phase = "DYNAMIC_SYNC"
	PhaseFollow        Phase = "FOLLOW"
)

var allPhases = []Phase{PhaseInit, PhaseInventorySync, PhaseDynamicSync, PhaseFollow}

// Controller drives the state machine described in SPEC_FULL.md §4.7.
type Controller struct {
	logger zerolog.Logger
	src    *source.Client
	cfg    *config.Config

	checkpoint *CheckpointStore
	progress   *progress.Publisher // nil if no NATS URL configured

	serviceName string

	mu            sync.RWMutex
	phase         Phase
	syncHeight    int64
	currentHeight int64
	currentTime   int64
	healthy       bool
}

// New constructs a Controller. progressPub may be nil.
func New(logger zerolog.Logger, src *source.Client, cfg *config.Config, checkpoint *CheckpointStore, progressPub *progress.Publisher) *Controller {
	return &Controller{
		logger:      logger.With().Str("component", "syncctl").Logger(),
		src:         src,
		cfg:         cfg,
		checkpoint:  checkpoint,
		progress:    progressPub,
		serviceName: "helium-arango-etl",
		phase:       PhaseInit,
		healthy:     true,
	}
}

func (c *Controller) newSinkClient() *sink.Client {
	return sink.New(c.cfg.ArangoURL, c.cfg.ArangoUsername, c.cfg.ArangoPassword, c.logger)
}

// Start runs the state machine until ctx is canceled.
func (c *Controller) Start(ctx context.Context) error {
	c.logger.Info().Msg("starting sync controller")

	sinkClient := c.newSinkClient()
	if err := sinkClient.EnsureSchema(ctx); err != nil {
		c.setHealthy(false)
		return errs.New(errs.KindConfig, "syncctl.Start", err)
	}

	if cp, err := c.checkpoint.Load(ctx, c.serviceName); err == nil && cp != nil {
		c.mu.Lock()
		c.phase = Phase(cp.Phase)
		c.syncHeight = cp.SyncHeight
		c.currentHeight = cp.CurrentHeight
		c.currentTime = cp.CurrentTime
		c.mu.Unlock()
		c.logger.Info().Str("phase", cp.Phase).Int64("sync_height", cp.SyncHeight).Msg("resumed from checkpoint")
	}

	height, err := c.src.CurrentHeight(ctx)
	if err != nil {
		c.setHealthy(false)
		return errs.New(errs.KindConnectFatal, "syncctl.Start", err)
	}
	c.setCurrentHeight(height)

	if c.Phase() == PhaseInit {
		c.setPhase(PhaseInventorySync)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		switch c.Phase() {
		case PhaseInventorySync:
			if err := c.runInventorySync(ctx); err != nil {
				controllerErrors.WithLabelValues(string(PhaseInventorySync)).Inc()
				c.logger.Error().Err(err).Msg("inventory sync failed, retrying after backoff")
				c.sleep(ctx, 5*time.Second)
				continue
			}
			c.setPhase(PhaseDynamicSync)

		case PhaseDynamicSync:
			if err := c.runDynamicSync(ctx); err != nil {
				controllerErrors.WithLabelValues(string(PhaseDynamicSync)).Inc()
				c.logger.Error().Err(err).Msg("dynamic sync chunk failed, continuing (I1 heals on re-run)")
			}
			if c.SyncHeight() >= c.CurrentHeight() {
				c.setPhase(PhaseFollow)
			}

		case PhaseFollow:
			if err := c.runFollow(ctx); err != nil {
				c.setHealthy(false)
				return err // only a fatal config/connect error propagates out of follow
			}
		}

		c.persistCheckpoint(ctx)
	}
}

// runInventorySync imports accounts, hotspots, cities, witnesses (within
// the recent-witness cutoff), rewards, then runs city-partitioned graph
// analytics — the INVENTORY_SYNC phase's component list from §4.7.
func (c *Controller) runInventorySync(ctx context.Context) error {
	sinkClient := c.newSinkClient()
	batchSize := int64(c.cfg.ImportBatchSize)

	if _, err := ingest.Drain(ctx, query.NewAccountsCursor(c.src.Pool(), batchSize), bulkUpsertFn(sinkClient, "accounts", "update")); err != nil {
		return errs.New(errs.KindChunk, "syncctl.runInventorySync.accounts", err)
	}

	if _, err := ingest.Drain(ctx, query.NewHotspotsCursor(c.src.Pool(), batchSize), bulkUpsertFn(sinkClient, "hotspots", "update")); err != nil {
		return errs.New(errs.KindChunk, "syncctl.runInventorySync.hotspots", err)
	}

	cityKeys, err := drainCityKeys(ctx, sinkClient, query.NewCitiesCursor(c.src.Pool(), batchSize))
	if err != nil {
		return errs.New(errs.KindChunk, "syncctl.runInventorySync.cities", err)
	}

	cutoff := time.Now().Unix() - int64(c.cfg.RecentWitnessDaysCutoff)*24*3600
	n, err := ingest.ParallelDrain(ctx, ingest.ParallelConfig{
		Kind:         query.KindWitnesses,
		SourceDSN:    c.cfg.PostgresURL,
		SinkBaseURL:  c.cfg.ArangoURL,
		SinkUsername: c.cfg.ArangoUsername,
		SinkPassword: c.cfg.ArangoPassword,
		MinTime:      cutoff,
		MaxTime:      time.Now().Unix(),
		BatchSize:    batchSize,
		Logger:       c.logger,
	})
	if err != nil {
		return errs.New(errs.KindChunk, "syncctl.runInventorySync.witnesses", err)
	}
	c.logger.Info().Int("witness_edges", n).Msg("witness inventory sync complete")

	if err := sinkClient.DeleteWhere(ctx, "witnesses", "time", "<", cutoff); err != nil {
		return errs.New(errs.KindChunk, "syncctl.runInventorySync.prune_witnesses", err)
	}

	if _, err := ingest.Drain(ctx, query.NewRewardsCursor(c.src.Pool(), cutoff, time.Now().Unix(), batchSize), bulkUpsertFn(sinkClient, "hotspots", "update")); err != nil {
		return errs.New(errs.KindChunk, "syncctl.runInventorySync.rewards", err)
	}

	if _, err := analytics.RunCityAnalytics(ctx, analytics.Config{
		SinkBaseURL:  c.cfg.ArangoURL,
		SinkUsername: c.cfg.ArangoUsername,
		SinkPassword: c.cfg.ArangoPassword,
		Cities:       cityKeys,
		MinCitySize:  c.cfg.MinCitySize,
		Logger:       c.logger,
	}); err != nil {
		return errs.New(errs.KindAnalytics, "syncctl.runInventorySync.analytics", err)
	}

	c.publish(ctx, "inventory_sync_complete", 0, 0)
	return nil
}

// runDynamicSync walks [min_time, max_time) windows from the persisted
// sync_height up to current_height, parallel-draining payments,
// witnesses and daily balances each chunk, the loop in §4.7.
func (c *Controller) runDynamicSync(ctx context.Context) error {
	chunk := c.cfg.InitialSyncChunkSize
	syncHeight := c.SyncHeight()
	currentHeight := c.CurrentHeight()

	minTime, err := c.src.TimeOfBlock(ctx, syncHeight)
	if err != nil {
		return errs.New(errs.KindQuery, "syncctl.runDynamicSync", err)
	}
	nextHeight := min64(syncHeight+chunk, currentHeight)
	maxTime, err := c.src.TimeOfBlock(ctx, nextHeight)
	if err != nil {
		return errs.New(errs.KindQuery, "syncctl.runDynamicSync", err)
	}

	for syncHeight < currentHeight {
		batchSize := int64(c.cfg.ImportBatchSize)

		for _, kind := range []query.Kind{query.KindPayments, query.KindWitnesses, query.KindDailyBalances} {
			n, err := ingest.ParallelDrain(ctx, ingest.ParallelConfig{
				Kind:         kind,
				SourceDSN:    c.cfg.PostgresURL,
				SinkBaseURL:  c.cfg.ArangoURL,
				SinkUsername: c.cfg.ArangoUsername,
				SinkPassword: c.cfg.ArangoPassword,
				MinTime:      minTime,
				MaxTime:      maxTime,
				BatchSize:    batchSize,
				Logger:       c.logger,
			})
			if err != nil {
				// a chunk failure is logged and the controller advances
				// regardless — I1 means a future re-run heals it.
				c.logger.Error().Err(err).Str("kind", string(kind)).Msg("chunk failed, advancing anyway")
				controllerErrors.WithLabelValues(string(PhaseDynamicSync)).Inc()
				continue
			}
			c.publish(ctx, string(kind)+"_chunk_complete", minTime, maxTime)
			c.logger.Info().Str("kind", string(kind)).Int("docs", n).Int64("min_time", minTime).Int64("max_time", maxTime).Msg("chunk drained")
		}

		nextSyncHeight, err := c.src.HeightAtOrAfter(ctx, maxTime)
		if err != nil {
			return errs.New(errs.KindQuery, "syncctl.runDynamicSync", err)
		}
		syncHeight = nextSyncHeight
		c.setSyncHeight(syncHeight)

		minTime = maxTime
		nextHeight = min64(syncHeight+chunk, currentHeight)
		endTime, err := c.src.TimeOfBlock(ctx, nextHeight)
		if err != nil {
			return errs.New(errs.KindQuery, "syncctl.runDynamicSync", err)
		}
		curTime, err := c.src.TimeOfBlock(ctx, currentHeight)
		if err != nil {
			return errs.New(errs.KindQuery, "syncctl.runDynamicSync", err)
		}
		maxTime = min64(endTime, curTime)

		c.persistCheckpoint(ctx)
	}

	return nil
}

// runFollow sleeps update_interval_seconds, then either re-triggers
// INVENTORY_SYNC (if the source is at least MinBlockDiffForUpdate blocks
// ahead of sync_height) or stays in FOLLOW. The source height query is
// retried with backoff; only when every attempt fails does it return a
// ConnectFatal error.
func (c *Controller) runFollow(ctx context.Context) error {
	c.sleep(ctx, time.Duration(c.cfg.UpdateIntervalSeconds)*time.Second)

	var height int64
	err := retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
		h, err := c.src.CurrentHeight(ctx)
		height = h
		return err
	})
	if err != nil {
		return errs.New(errs.KindConnectFatal, "syncctl.runFollow", err)
	}
	behind := height - c.SyncHeight()
	c.setCurrentHeight(height)

	if behind >= c.cfg.MinBlockDiffForUpdate {
		c.logger.Info().Int64("blocks_behind", behind).Msg("drifted far enough ahead, re-running inventory sync")
		c.setPhase(PhaseInventorySync)
		return nil
	}

	c.logger.Debug().Int64("blocks_behind", behind).Msg("staying in follow")
	return nil
}

// Phase returns the controller's current phase.
func (c *Controller) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
	for _, ph := range allPhases {
		v := 0.0
		if ph == p {
			v = 1.0
		}
		phaseGauge.WithLabelValues(string(ph)).Set(v)
	}
}

// SyncHeight returns the height the controller has fully ingested up to.
func (c *Controller) SyncHeight() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.syncHeight
}

func (c *Controller) setSyncHeight(h int64) {
	c.mu.Lock()
	c.syncHeight = h
	c.mu.Unlock()
	syncHeightGauge.Set(float64(h))
	blocksBehindGauge.Set(float64(c.CurrentHeight() - h))
}

// CurrentHeight returns the most recently observed source height.
func (c *Controller) CurrentHeight() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentHeight
}

func (c *Controller) setCurrentHeight(h int64) {
	c.mu.Lock()
	c.currentHeight = h
	c.mu.Unlock()
	sourceHeightGauge.Set(float64(h))
	blocksBehindGauge.Set(float64(h - c.SyncHeight()))
}

func (c *Controller) currentTimeSnapshot() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentTime
}

func (c *Controller) setHealthy(v bool) {
	c.mu.Lock()
	c.healthy = v
	c.mu.Unlock()
}

// Healthy reports whether the controller has hit a fatal error.
func (c *Controller) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.healthy
}

// Status is a snapshot of the controller's progress, for the daemon's
// health endpoint.
type Status struct {
	Phase         Phase `json:"phase"`
	SyncHeight    int64 `json:"sync_height"`
	CurrentHeight int64 `json:"current_height"`
	Healthy       bool  `json:"healthy"`
}

// GetStatus returns a snapshot of the controller's current progress.
func (c *Controller) GetStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		Phase:         c.phase,
		SyncHeight:    c.syncHeight,
		CurrentHeight: c.currentHeight,
		Healthy:       c.healthy,
	}
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func (c *Controller) publish(ctx context.Context, event string, minTime, maxTime int64) {
	if c.progress == nil {
		return
	}
	if err := c.progress.Publish(ctx, progress.Event{
		Phase:   string(c.Phase()),
		Event:   event,
		MinTime: minTime,
		MaxTime: maxTime,
	}); err != nil {
		c.logger.Warn().Err(err).Msg("failed to publish progress event")
	}
}

func (c *Controller) persistCheckpoint(ctx context.Context) {
	err := c.checkpoint.Save(ctx, models.Checkpoint{
		ServiceName:   c.serviceName,
		Phase:         string(c.Phase()),
		SyncHeight:    c.SyncHeight(),
		CurrentHeight: c.CurrentHeight(),
		CurrentTime:   c.currentTimeSnapshot(),
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to persist checkpoint")
	}
}

// bulkUpsertFn adapts sink.Client.BulkUpsert to ingest.Upsert for a fixed
// collection/onDuplicate policy, used by the non-windowed inventory
// cursors (accounts, hotspots, rewards).
func bulkUpsertFn(client *sink.Client, collection, onDuplicate string) ingest.Upsert {
	return func(ctx context.Context, docs []query.Document) (int, error) {
		result, err := client.BulkUpsert(ctx, collection, docs, onDuplicate)
		if err != nil {
			return 0, err
		}
		return result.Created + result.Updated, nil
	}
}

// drainCityKeys upserts every distinct city document and returns the city
// keys discovered, which Graph Analytics then partitions work across.
func drainCityKeys(ctx context.Context, client *sink.Client, cursor query.Cursor) ([]string, error) {
	var keys []string
	upsert := func(ctx context.Context, docs []query.Document) (int, error) {
		for _, d := range docs {
			if key, ok := d["_key"].(string); ok {
				keys = append(keys, key)
			}
		}
		result, err := client.BulkUpsert(ctx, "cities", docs, "update")
		if err != nil {
			return 0, err
		}
		return result.Created + result.Updated, nil
	}
	if _, err := ingest.Drain(ctx, cursor, upsert); err != nil {
		return nil, err
	}
	return keys, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
