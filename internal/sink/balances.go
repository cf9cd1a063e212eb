package sink

import (
	"context"

	"github.com/evandiewald/helium-arango-etl/pkg/errs"
)

// UpsertDailyBalances appends each document's daily_balances entries onto
// the existing balances document for that account, rather than replacing
// it outright — a day's snapshot from an earlier sync must survive a
// later chunk's upsert of the same account. This mirrors the original
// ETL's update_daily_balances AQL (`update: {daily_balances:
// append(OLD.daily_balances, doc.daily_balances)}`), which the generic
// bulk-import onDuplicate=update semantics can't express (field
// overwrite, not array append).
func (c *Client) UpsertDailyBalances(ctx context.Context, docs []map[string]any) error {
	if len(docs) == 0 {
		return nil
	}

	const aql = `
		FOR doc IN @docs
			UPSERT { _key: doc._key }
			INSERT doc
			UPDATE { daily_balances: APPEND(OLD.daily_balances, doc.daily_balances) }
			IN balances
			OPTIONS { waitForSync: true }`

	_, err := c.Query(ctx, aql, map[string]any{"docs": docs})
	if err != nil {
		return errs.New(errs.KindUpsert, "sink.UpsertDailyBalances", err)
	}
	return nil
}
