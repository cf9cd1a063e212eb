package query

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evandiewald/helium-arango-etl/pkg/errs"
)

// RewardsCursor sums rewards.amount per gateway within [minTime, maxTime),
// producing a partial hotspot update document per gateway. Results are
// ordered by gateway so successive batches never split one gateway's sum
// across a page boundary.
type RewardsCursor struct {
	pool             *pgxpool.Pool
	minTime, maxTime int64
	state            BatchState
}

func NewRewardsCursor(pool *pgxpool.Pool, minTime, maxTime, batchSize int64) *RewardsCursor {
	return &RewardsCursor{pool: pool, minTime: minTime, maxTime: maxTime, state: NewBatchState(batchSize)}
}

func (c *RewardsCursor) NextBatch(ctx context.Context) ([]Document, error) {
	if c.state.Complete {
		return []Document{}, nil
	}

	rows, err := c.pool.Query(ctx, `
		SELECT gateway, sum(amount) AS total
		FROM rewards
		WHERE time >= $1 AND time < $2 AND gateway IS NOT NULL
		GROUP BY gateway
		ORDER BY gateway
		LIMIT $3 OFFSET $4`,
		c.minTime, c.maxTime, c.state.Limit(), c.state.Offset())
	if err != nil {
		return nil, errs.New(errs.KindQuery, "query.RewardsCursor", err)
	}
	defer rows.Close()

	var batch []Document
	for rows.Next() {
		var gateway string
		var total int64
		if err := rows.Scan(&gateway, &total); err != nil {
			return nil, errs.New(errs.KindValidation, "query.RewardsCursor", err)
		}
		batch = append(batch, Document{
			"_key":       gateway,
			"rewards_5d": total,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.KindQuery, "query.RewardsCursor", err)
	}

	c.state.Advance(int64(len(batch)))
	return batch, nil
}
