// Package ingest drains batched query cursors into the sink, sequentially
// (Drain) or fanned out across a time range (ParallelDrain).
package ingest

import (
	"context"

	"github.com/evandiewald/helium-arango-etl/internal/query"
	"github.com/evandiewald/helium-arango-etl/internal/retry"
	"github.com/evandiewald/helium-arango-etl/pkg/errs"
)

// Upsert writes one batch of documents to the sink and reports how many
// were applied. Concrete callers bind this to either
// sink.Client.BulkUpsert (most collections) or
// sink.Client.UpsertDailyBalances (the balances collection's
// append-don't-replace semantics).
type Upsert func(ctx context.Context, docs []query.Document) (applied int, err error)

// Drain repeatedly pulls batches from cursor and writes them through
// upsert until the cursor is exhausted, retrying each batch write on
// transient sink failure. It returns the total number of documents
// applied.
func Drain(ctx context.Context, cursor query.Cursor, upsert Upsert) (int, error) {
	total := 0
	for {
		batch, err := cursor.NextBatch(ctx)
		if err != nil {
			return total, errs.New(errs.KindQuery, "ingest.Drain", err)
		}
		if len(batch) == 0 {
			return total, nil
		}

		var applied int
		err = retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
			var upsertErr error
			applied, upsertErr = upsert(ctx, batch)
			return upsertErr
		})
		if err != nil {
			return total, errs.New(errs.KindUpsert, "ingest.Drain", err)
		}
		total += applied
	}
}
