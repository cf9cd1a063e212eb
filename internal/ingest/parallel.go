package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/evandiewald/helium-arango-etl/internal/query"
	"github.com/evandiewald/helium-arango-etl/internal/sink"
	"github.com/evandiewald/helium-arango-etl/pkg/errs"
)

// ParallelConfig is everything ParallelDrain needs to fan a time-windowed
// collection scan out across workers. SourceDSN/SinkBaseURL are used to
// open one independent connection per worker — resources are never
// shared across workers, per §4.4/§5.
type ParallelConfig struct {
	Kind          query.Kind
	SourceDSN     string
	SinkBaseURL   string
	SinkUsername  string
	SinkPassword  string
	MinTime       int64
	MaxTime       int64
	BatchSize     int64
	Workers       int // 0 means runtime.NumCPU()
	Logger        zerolog.Logger
}

// ParallelDrain splits [MinTime, MaxTime) into Workers contiguous
// sub-intervals (rounding error in the last one), and runs an
// independent Drain over each, fanning out with a WaitGroup and
// collecting errors on a buffered channel. A single worker's failure does not
// cancel its siblings; the caller receives the union of errors and
// decides whether to mark the chunk failed (§4.4 step 5).
func ParallelDrain(ctx context.Context, cfg ParallelConfig) (int, error) {
	collection := query.CollectionFor(cfg.Kind)
	timer := prometheus.NewTimer(chunkDuration.WithLabelValues(collection))
	defer timer.ObserveDuration()

	factory, ok := query.FactoryFor(cfg.Kind)
	if !ok {
		return 0, errs.New(errs.KindConfig, "ingest.ParallelDrain", fmt.Errorf("unregistered collection kind %q", cfg.Kind))
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}

	width := cfg.MaxTime - cfg.MinTime
	if width < 0 {
		return 0, errs.New(errs.KindConfig, "ingest.ParallelDrain", fmt.Errorf("invalid window: min %d > max %d", cfg.MinTime, cfg.MaxTime))
	}
	step := width / int64(workers)
	if step == 0 {
		step = 1
	}

	var (
		wg      sync.WaitGroup
		errCh   = make(chan error, workers)
		countCh = make(chan int, workers)
	)

	for i := 0; i < workers; i++ {
		wMin := cfg.MinTime + int64(i)*step
		wMax := wMin + step
		if i == workers-1 {
			wMax = cfg.MaxTime // last interval absorbs rounding error
		}
		if wMin >= cfg.MaxTime {
			break
		}

		wg.Add(1)
		go func(minTime, maxTime int64) {
			defer wg.Done()
			n, err := runWorker(ctx, cfg, factory, minTime, maxTime)
			if err != nil {
				errCh <- err
				return
			}
			countCh <- n
		}(wMin, wMax)
	}

	wg.Wait()
	close(errCh)
	close(countCh)

	total := 0
	for n := range countCh {
		total += n
	}

	var workerErrs []error
	for err := range errCh {
		workerErrs = append(workerErrs, err)
	}
	docsIngested.WithLabelValues(collection).Add(float64(total))
	if len(workerErrs) > 0 {
		ingestErrors.WithLabelValues(collection, "chunk").Inc()
		return total, errs.New(errs.KindChunk, "ingest.ParallelDrain", errors.Join(workerErrs...))
	}
	return total, nil
}

func runWorker(ctx context.Context, cfg ParallelConfig, factory query.WindowedFactory, minTime, maxTime int64) (int, error) {
	pool, err := pgxpool.New(ctx, cfg.SourceDSN)
	if err != nil {
		return 0, errs.New(errs.KindConnectTransient, "ingest.runWorker", err)
	}
	defer pool.Close()

	sinkClient := sink.New(cfg.SinkBaseURL, cfg.SinkUsername, cfg.SinkPassword, cfg.Logger)
	collection := query.CollectionFor(cfg.Kind)
	onDuplicate := query.OnDuplicateFor(cfg.Kind)

	cursor := factory(pool, minTime, maxTime, cfg.BatchSize)

	var upsert Upsert
	if cfg.Kind == query.KindDailyBalances {
		upsert = func(ctx context.Context, docs []query.Document) (int, error) {
			if err := sinkClient.UpsertDailyBalances(ctx, docs); err != nil {
				return 0, err
			}
			return len(docs), nil
		}
	} else {
		upsert = func(ctx context.Context, docs []query.Document) (int, error) {
			result, err := sinkClient.BulkUpsert(ctx, collection, docs, onDuplicate)
			if err != nil {
				return 0, err
			}
			return result.Created + result.Updated, nil
		}
	}

	return Drain(ctx, cursor, upsert)
}
