package query

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evandiewald/helium-arango-etl/pkg/errs"
	"github.com/evandiewald/helium-arango-etl/pkg/models"
)

// DailyBalancesCursor aggregates, per account, the most recent balance
// snapshot within each calendar day inside [minTime, maxTime), using a
// parameterized query throughout (the original ETL built this query with
// string formatting of the time bounds — a design note this daemon
// deliberately does not repeat, see SPEC_FULL.md §9).
type DailyBalancesCursor struct {
	pool             *pgxpool.Pool
	minTime, maxTime int64
	state            BatchState
}

func NewDailyBalancesCursor(pool *pgxpool.Pool, minTime, maxTime, batchSize int64) *DailyBalancesCursor {
	return &DailyBalancesCursor{pool: pool, minTime: minTime, maxTime: maxTime, state: NewBatchState(batchSize)}
}

func (c *DailyBalancesCursor) NextBatch(ctx context.Context) ([]Document, error) {
	if c.state.Complete {
		return []Document{}, nil
	}

	rows, err := c.pool.Query(ctx, `
		SELECT DISTINCT ON (address, day) address, day, balance, dc_balance, staked_balance
		FROM (
			SELECT address, to_timestamp(time)::date AS day, balance, dc_balance, staked_balance, time
			FROM accounts
			WHERE time >= $1 AND time < $2
		) daily
		ORDER BY address, day, time DESC
		LIMIT $3 OFFSET $4`,
		c.minTime, c.maxTime, c.state.Limit(), c.state.Offset())
	if err != nil {
		return nil, errs.New(errs.KindQuery, "query.DailyBalancesCursor", err)
	}
	defer rows.Close()

	perAddress := make(map[string][]models.DailyBalance)
	var order []string
	var rowCount int64
	for rows.Next() {
		rowCount++
		var address, day string
		var balance, dcBalance, stakedBalance int64
		if err := rows.Scan(&address, &day, &balance, &dcBalance, &stakedBalance); err != nil {
			return nil, errs.New(errs.KindValidation, "query.DailyBalancesCursor", err)
		}
		if _, ok := perAddress[address]; !ok {
			order = append(order, address)
		}
		perAddress[address] = append(perAddress[address], models.DailyBalance{
			Date:          day,
			Balance:       balance,
			DCBalance:     dcBalance,
			StakedBalance: stakedBalance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.KindQuery, "query.DailyBalancesCursor", err)
	}

	batch := make([]Document, 0, len(order))
	for _, address := range order {
		doc := models.DailyBalanceDoc{Key: address, DailyBalances: perAddress[address]}
		balances := make([]Document, 0, len(doc.DailyBalances))
		for _, b := range doc.DailyBalances {
			balances = append(balances, Document{
				"date":           b.Date,
				"balance":        b.Balance,
				"dc_balance":     b.DCBalance,
				"staked_balance": b.StakedBalance,
			})
		}
		batch = append(batch, Document{
			"_key":           doc.Key,
			"daily_balances": balances,
		})
	}

	c.state.Advance(rowCount)
	return batch, nil
}
