// Package query implements the batched-query abstraction every source
// scan uses: a cursor holds its own pagination state and is drained one
// bounded batch at a time so the pipeline never holds an entire result
// set in memory.
package query

import "context"

// Document is a single row mapped into sink-ready shape. It is a plain
// map, matching the schemaless documents the sink accepts. Cursors build
// one from the corresponding pkg/models row type, so field names are
// checked at compile time before being flattened into the map the sink
// transport actually sends.
type Document = map[string]any

// Cursor is implemented by every concrete batched query (Accounts,
// Hotspots, Rewards, Payments, Witnesses, Cities, DailyBalances).
type Cursor interface {
	// NextBatch returns the next batch of documents. An empty (possibly
	// nil) slice with a nil error means the cursor is exhausted.
	NextBatch(ctx context.Context) ([]Document, error)
}

// BatchState tracks the sliding [sliceStart, sliceEnd) window a cursor
// has consumed so far, mirroring the slice_start/slice_end bookkeeping
// the original batched queries use.
type BatchState struct {
	SliceStart int64
	SliceEnd   int64
	BatchSize  int64
	Complete   bool
}

// NewBatchState starts a window of width batchSize at offset 0.
func NewBatchState(batchSize int64) BatchState {
	return BatchState{SliceStart: 0, SliceEnd: batchSize, BatchSize: batchSize}
}

// Advance slides the window forward by BatchSize and marks the cursor
// complete once a batch comes back shorter than requested.
func (b *BatchState) Advance(rowsReturned int64) {
	if rowsReturned < b.BatchSize {
		b.Complete = true
	}
	b.SliceStart = b.SliceEnd
	b.SliceEnd += b.BatchSize
}

// Limit and Offset are the SQL-side parameters for the current window.
func (b *BatchState) Limit() int64  { return b.BatchSize }
func (b *BatchState) Offset() int64 { return b.SliceStart }
