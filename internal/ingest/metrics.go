package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	docsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etl_docs_ingested_total",
		Help: "Total documents successfully written to the sink, by collection.",
	}, []string{"collection"})

	chunkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "etl_chunk_duration_seconds",
		Help:    "Duration of a parallel_drain call over one time chunk, by collection.",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection"})

	ingestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etl_ingest_errors_total",
		Help: "Ingest pipeline errors, by collection and error kind.",
	}, []string{"collection", "kind"})
)
