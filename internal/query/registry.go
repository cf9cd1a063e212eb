package query

import "github.com/jackc/pgx/v5/pgxpool"

// Kind names a time-windowed, parallelizable collection scan.
type Kind string

const (
	KindPayments      Kind = "payments"
	KindWitnesses     Kind = "witnesses"
	KindDailyBalances Kind = "daily_balances"
)

// WindowedFactory builds a Cursor bound to pool for the given
// [minTime, maxTime) window and batch size. internal/ingest's
// ParallelDrain looks up one of these per worker sub-interval — the
// same "kind → constructor" dispatch shape the teacher uses to route
// decoded events to handlers, repointed at collection kind → cursor.
type WindowedFactory func(pool *pgxpool.Pool, minTime, maxTime, batchSize int64) Cursor

var windowedFactories = map[Kind]WindowedFactory{
	KindPayments: func(pool *pgxpool.Pool, minTime, maxTime, batchSize int64) Cursor {
		return NewPaymentsCursor(pool, minTime, maxTime, batchSize)
	},
	KindWitnesses: func(pool *pgxpool.Pool, minTime, maxTime, batchSize int64) Cursor {
		return NewWitnessesCursor(pool, minTime, maxTime, batchSize)
	},
	KindDailyBalances: func(pool *pgxpool.Pool, minTime, maxTime, batchSize int64) Cursor {
		return NewDailyBalancesCursor(pool, minTime, maxTime, batchSize)
	},
}

// FactoryFor returns the windowed cursor constructor for kind, and false
// if kind is not registered.
func FactoryFor(kind Kind) (WindowedFactory, bool) {
	f, ok := windowedFactories[kind]
	return f, ok
}

// OnDuplicateFor returns the sink duplicate policy each windowed
// collection uses, per §4.4/§4.5/I3.
func OnDuplicateFor(kind Kind) string {
	switch kind {
	case KindPayments:
		return "ignore"
	case KindWitnesses:
		return "ignore"
	case KindDailyBalances:
		return "update"
	default:
		return "update"
	}
}

// CollectionFor returns the sink collection name a given Kind writes to.
func CollectionFor(kind Kind) string {
	switch kind {
	case KindPayments:
		return "payments"
	case KindWitnesses:
		return "witnesses"
	case KindDailyBalances:
		return "balances"
	default:
		return string(kind)
	}
}
