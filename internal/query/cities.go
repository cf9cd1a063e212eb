package query

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evandiewald/helium-arango-etl/pkg/canon"
	"github.com/evandiewald/helium-arango-etl/pkg/errs"
	"github.com/evandiewald/helium-arango-etl/pkg/models"
)

// CitiesCursor scans distinct city_id values out of locations.
type CitiesCursor struct {
	pool  *pgxpool.Pool
	state BatchState
}

func NewCitiesCursor(pool *pgxpool.Pool, batchSize int64) *CitiesCursor {
	return &CitiesCursor{pool: pool, state: NewBatchState(batchSize)}
}

func (c *CitiesCursor) NextBatch(ctx context.Context) ([]Document, error) {
	if c.state.Complete {
		return []Document{}, nil
	}

	rows, err := c.pool.Query(ctx, `
		SELECT DISTINCT city_id
		FROM locations
		WHERE city_id IS NOT NULL
		ORDER BY city_id
		LIMIT $1 OFFSET $2`,
		c.state.Limit(), c.state.Offset())
	if err != nil {
		return nil, errs.New(errs.KindQuery, "query.CitiesCursor", err)
	}
	defer rows.Close()

	var batch []Document
	for rows.Next() {
		var cityID string
		if err := rows.Scan(&cityID); err != nil {
			return nil, errs.New(errs.KindValidation, "query.CitiesCursor", err)
		}
		city := models.City{Key: canon.KeyString(cityID), CityID: cityID}
		batch = append(batch, Document{
			"_key":    city.Key,
			"city_id": city.CityID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.KindQuery, "query.CitiesCursor", err)
	}

	c.state.Advance(int64(len(batch)))
	return batch, nil
}
