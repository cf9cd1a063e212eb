package query

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evandiewald/helium-arango-etl/internal/witness"
	"github.com/evandiewald/helium-arango-etl/pkg/errs"
	"github.com/evandiewald/helium-arango-etl/pkg/models"
)

// WitnessesCursor scans poc_receipts_v1 transactions in
// [minTime, maxTime), ordered by time descending (load-bearing for I2),
// and canonicalizes each batch's witness receipts before returning
// hotspots→hotspots edges.
type WitnessesCursor struct {
	pool             *pgxpool.Pool
	minTime, maxTime int64
	state            BatchState
}

func NewWitnessesCursor(pool *pgxpool.Pool, minTime, maxTime, batchSize int64) *WitnessesCursor {
	return &WitnessesCursor{pool: pool, minTime: minTime, maxTime: maxTime, state: NewBatchState(batchSize)}
}

type pocReceiptPath struct {
	Challengee string             `json:"challengee"`
	Witnesses  []pocReceiptWitness `json:"witnesses"`
}

type pocReceiptWitness struct {
	Gateway   string  `json:"gateway"`
	Signal    float64 `json:"signal"`
	SNR       float64 `json:"snr"`
	Frequency float64 `json:"frequency"`
	Datarate  string  `json:"datarate"`
	IsValid   bool    `json:"is_valid"`
}

type pocReceiptFields struct {
	Path []pocReceiptPath `json:"path"`
}

func (c *WitnessesCursor) NextBatch(ctx context.Context) ([]Document, error) {
	if c.state.Complete {
		return []Document{}, nil
	}

	rows, err := c.pool.Query(ctx, `
		SELECT fields, time
		FROM transactions
		WHERE type = 'poc_receipts_v1' AND time >= $1 AND time < $2
		ORDER BY time DESC
		LIMIT $3 OFFSET $4`,
		c.minTime, c.maxTime, c.state.Limit(), c.state.Offset())
	if err != nil {
		return nil, errs.New(errs.KindQuery, "query.WitnessesCursor", err)
	}
	defer rows.Close()

	var receipts []witness.Receipt
	var rowCount int64
	for rows.Next() {
		rowCount++
		var rawFields []byte
		var txTime int64
		if err := rows.Scan(&rawFields, &txTime); err != nil {
			return nil, errs.New(errs.KindValidation, "query.WitnessesCursor", err)
		}

		var fields pocReceiptFields
		if err := json.Unmarshal(rawFields, &fields); err != nil || len(fields.Path) == 0 {
			continue
		}
		challengee := fields.Path[0].Challengee
		for _, w := range fields.Path[0].Witnesses {
			receipts = append(receipts, witness.Receipt{
				Challengee: challengee,
				Gateway:    w.Gateway,
				Signal:     w.Signal,
				SNR:        w.SNR,
				Frequency:  w.Frequency,
				Datarate:   w.Datarate,
				IsValid:    w.IsValid,
				Time:       txTime,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.KindQuery, "query.WitnessesCursor", err)
	}

	edges := witness.Canonicalize(receipts)
	batch := make([]Document, 0, len(edges))
	for _, e := range edges {
		edge := models.WitnessEdge{
			Key:       e.Key,
			From:      "hotspots/" + e.Challengee,
			To:        "hotspots/" + e.Gateway,
			Signal:    e.Signal,
			SNR:       e.SNR,
			Frequency: e.Frequency,
			Datarate:  e.Datarate,
			IsValid:   e.IsValid,
			Time:      e.Time,
		}
		batch = append(batch, Document{
			"_key":      edge.Key,
			"_from":     edge.From,
			"_to":       edge.To,
			"signal":    edge.Signal,
			"snr":       edge.SNR,
			"frequency": edge.Frequency,
			"datarate":  edge.Datarate,
			"is_valid":  edge.IsValid,
			"time":      edge.Time,
		})
	}

	c.state.Advance(rowCount)
	if len(batch) == 0 && !c.state.Complete {
		// a full page yielded no witness edges; an empty return would
		// read as exhaustion, so move on to the next page
		return c.NextBatch(ctx)
	}
	return batch, nil
}
