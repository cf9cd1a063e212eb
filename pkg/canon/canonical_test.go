package canon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyIsDeterministic(t *testing.T) {
	a := map[string]any{"from": "abc", "to": "def", "amount": int64(100)}
	b := map[string]any{"amount": int64(100), "to": "def", "from": "abc"}

	require.Equal(t, Key(a), Key(b), "key must not depend on map iteration order")
}

func TestKeyDiffersOnContent(t *testing.T) {
	a := map[string]any{"from": "abc", "to": "def", "amount": int64(100)}
	b := map[string]any{"from": "abc", "to": "def", "amount": int64(101)}

	require.NotEqual(t, Key(a), Key(b))
}

func TestKeyStringDeterministic(t *testing.T) {
	require.Equal(t, KeyString("challengee+gateway"), KeyString("challengee+gateway"))
	require.NotEqual(t, KeyString("challengee+gateway"), KeyString("gateway+challengee"))
}
