package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evandiewald/helium-arango-etl/internal/query"
)

// fakeCursor replays a fixed sequence of batches, then reports exhausted.
type fakeCursor struct {
	batches [][]query.Document
	calls   int
}

func (f *fakeCursor) NextBatch(ctx context.Context) ([]query.Document, error) {
	if f.calls >= len(f.batches) {
		return []query.Document{}, nil
	}
	b := f.batches[f.calls]
	f.calls++
	return b, nil
}

func TestDrainAppliesEveryBatch(t *testing.T) {
	cursor := &fakeCursor{batches: [][]query.Document{
		{{"_key": "a"}, {"_key": "b"}},
		{{"_key": "c"}},
	}}

	var applied []query.Document
	upsert := func(ctx context.Context, docs []query.Document) (int, error) {
		applied = append(applied, docs...)
		return len(docs), nil
	}

	total, err := Drain(context.Background(), cursor, upsert)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, applied, 3)
}

func TestDrainStopsOnEmptyBatch(t *testing.T) {
	cursor := &fakeCursor{batches: nil}
	calls := 0
	upsert := func(ctx context.Context, docs []query.Document) (int, error) {
		calls++
		return len(docs), nil
	}

	total, err := Drain(context.Background(), cursor, upsert)
	require.NoError(t, err)
	require.Equal(t, 0, total)
	require.Equal(t, 0, calls)
}

func TestDrainSurfacesPermanentUpsertError(t *testing.T) {
	cursor := &fakeCursor{batches: [][]query.Document{{{"_key": "a"}}}}
	permanent := errors.New("unique constraint violation")
	upsert := func(ctx context.Context, docs []query.Document) (int, error) {
		return 0, permanent
	}

	_, err := Drain(context.Background(), cursor, upsert)
	require.Error(t, err)
}
