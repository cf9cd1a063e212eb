package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFactoryForKnownKinds(t *testing.T) {
	for _, kind := range []Kind{KindPayments, KindWitnesses, KindDailyBalances} {
		factory, ok := FactoryFor(kind)
		require.True(t, ok, "kind %s should be registered", kind)
		require.NotNil(t, factory)
	}
}

func TestFactoryForUnknownKind(t *testing.T) {
	_, ok := FactoryFor(Kind("unknown"))
	require.False(t, ok)
}

func TestOnDuplicateForMatchesDedupPolicy(t *testing.T) {
	require.Equal(t, "ignore", OnDuplicateFor(KindPayments))
	require.Equal(t, "ignore", OnDuplicateFor(KindWitnesses))
	require.Equal(t, "update", OnDuplicateFor(KindDailyBalances))
}

func TestCollectionForNames(t *testing.T) {
	require.Equal(t, "payments", CollectionFor(KindPayments))
	require.Equal(t, "witnesses", CollectionFor(KindWitnesses))
	require.Equal(t, "balances", CollectionFor(KindDailyBalances))
}
