package query

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evandiewald/helium-arango-etl/pkg/errs"
	"github.com/evandiewald/helium-arango-etl/pkg/models"
)

// AccountsCursor scans account_inventory, keyed by address.
type AccountsCursor struct {
	pool  *pgxpool.Pool
	state BatchState
}

// NewAccountsCursor binds a full-table scan of account_inventory to pool.
func NewAccountsCursor(pool *pgxpool.Pool, batchSize int64) *AccountsCursor {
	return &AccountsCursor{pool: pool, state: NewBatchState(batchSize)}
}

func (c *AccountsCursor) NextBatch(ctx context.Context) ([]Document, error) {
	if c.state.Complete {
		return []Document{}, nil
	}

	rows, err := c.pool.Query(ctx, `
		SELECT address, balance, dc_balance, security_balance, staked_balance,
		       nonce, first_block, last_block
		FROM account_inventory
		ORDER BY address
		LIMIT $1 OFFSET $2`,
		c.state.Limit(), c.state.Offset())
	if err != nil {
		return nil, errs.New(errs.KindQuery, "query.AccountsCursor", err)
	}
	defer rows.Close()

	var batch []Document
	for rows.Next() {
		var (
			address                                          string
			balance, dcBalance, securityBalance, stakedBalance int64
			nonce, firstBlock, lastBlock                      int64
		)
		if err := rows.Scan(&address, &balance, &dcBalance, &securityBalance, &stakedBalance, &nonce, &firstBlock, &lastBlock); err != nil {
			return nil, errs.New(errs.KindValidation, "query.AccountsCursor", err)
		}
		acct := models.Account{
			Key:             address,
			Address:         address,
			Balance:         balance,
			DCBalance:       dcBalance,
			SecurityBalance: securityBalance,
			StakedBalance:   stakedBalance,
			Nonce:           nonce,
			FirstBlock:      firstBlock,
			LastBlock:       lastBlock,
		}
		batch = append(batch, Document{
			"_key":             acct.Key,
			"address":          acct.Address,
			"balance":          acct.Balance,
			"dc_balance":       acct.DCBalance,
			"security_balance": acct.SecurityBalance,
			"staked_balance":   acct.StakedBalance,
			"nonce":            acct.Nonce,
			"first_block":      acct.FirstBlock,
			"last_block":       acct.LastBlock,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.KindQuery, "query.AccountsCursor", err)
	}

	c.state.Advance(int64(len(batch)))
	return batch, nil
}
