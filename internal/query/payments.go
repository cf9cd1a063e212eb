package query

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evandiewald/helium-arango-etl/pkg/canon"
	"github.com/evandiewald/helium-arango-etl/pkg/errs"
	"github.com/evandiewald/helium-arango-etl/pkg/models"
)

// PaymentsCursor scans payment_v1/payment_v2 transactions in
// [minTime, maxTime), deriving an idempotent _key from the canonical
// JSON of each transaction's fields column (I1, I3).
type PaymentsCursor struct {
	pool             *pgxpool.Pool
	minTime, maxTime int64
	state            BatchState
}

func NewPaymentsCursor(pool *pgxpool.Pool, minTime, maxTime, batchSize int64) *PaymentsCursor {
	return &PaymentsCursor{pool: pool, minTime: minTime, maxTime: maxTime, state: NewBatchState(batchSize)}
}

func (c *PaymentsCursor) NextBatch(ctx context.Context) ([]Document, error) {
	if c.state.Complete {
		return []Document{}, nil
	}

	rows, err := c.pool.Query(ctx, `
		SELECT type, fields, time
		FROM transactions
		WHERE type IN ('payment_v1', 'payment_v2') AND time >= $1 AND time < $2
		ORDER BY hash
		LIMIT $3 OFFSET $4`,
		c.minTime, c.maxTime, c.state.Limit(), c.state.Offset())
	if err != nil {
		return nil, errs.New(errs.KindQuery, "query.PaymentsCursor", err)
	}
	defer rows.Close()

	var batch []Document
	var rowCount int64
	for rows.Next() {
		rowCount++
		var txType string
		var rawFields []byte
		var txTime int64
		if err := rows.Scan(&txType, &rawFields, &txTime); err != nil {
			return nil, errs.New(errs.KindValidation, "query.PaymentsCursor", err)
		}

		doc, err := mapPaymentFields(txType, rawFields, txTime)
		if err != nil {
			// one malformed row must not abort the whole batch; skip it
			continue
		}
		batch = append(batch, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.KindQuery, "query.PaymentsCursor", err)
	}

	c.state.Advance(rowCount)
	if len(batch) == 0 && !c.state.Complete {
		// every row on a full page was skipped; an empty return would
		// read as exhaustion, so move on to the next page
		return c.NextBatch(ctx)
	}
	return batch, nil
}

func mapPaymentFields(txType string, rawFields []byte, txTime int64) (Document, error) {
	var fields map[string]any
	if err := json.Unmarshal(rawFields, &fields); err != nil {
		return nil, errs.New(errs.KindValidation, "query.mapPaymentFields", err)
	}

	var from, to string
	var amount float64

	switch txType {
	case "payment_v1":
		from, _ = fields["payer"].(string)
		to, _ = fields["payee"].(string)
		amount, _ = fields["amount"].(float64)
	case "payment_v2":
		from, _ = fields["payer"].(string)
		payments, ok := fields["payments"].([]any)
		if !ok || len(payments) == 0 {
			return nil, errs.New(errs.KindValidation, "query.mapPaymentFields", errPaymentV2Empty)
		}
		first, ok := payments[0].(map[string]any)
		if !ok {
			return nil, errs.New(errs.KindValidation, "query.mapPaymentFields", errPaymentV2Empty)
		}
		to, _ = first["payee"].(string)
		amount, _ = first["amount"].(float64)
	default:
		return nil, errs.New(errs.KindValidation, "query.mapPaymentFields", errUnknownPaymentType)
	}

	edge := models.PaymentEdge{
		Key:    canon.Key(fields),
		From:   "accounts/" + from,
		To:     "accounts/" + to,
		Amount: int64(amount),
		Time:   txTime,
	}
	return Document{
		"_key":   edge.Key,
		"_from":  edge.From,
		"_to":    edge.To,
		"amount": edge.Amount,
		"time":   edge.Time,
	}, nil
}
