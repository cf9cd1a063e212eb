package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapPaymentFieldsV1(t *testing.T) {
	doc, err := mapPaymentFields("payment_v1", []byte(`{"payer":"addr-a","payee":"addr-b","amount":500}`), 1700000000)
	require.NoError(t, err)
	require.Equal(t, "accounts/addr-a", doc["_from"])
	require.Equal(t, "accounts/addr-b", doc["_to"])
	require.Equal(t, int64(500), doc["amount"])
	require.Equal(t, int64(1700000000), doc["time"])
	require.NotEmpty(t, doc["_key"])
}

func TestMapPaymentFieldsV2UsesFirstPayment(t *testing.T) {
	raw := []byte(`{"payer":"addr-a","payments":[{"payee":"addr-b","amount":10},{"payee":"addr-c","amount":20}]}`)
	doc, err := mapPaymentFields("payment_v2", raw, 1700000001)
	require.NoError(t, err)
	require.Equal(t, "accounts/addr-a", doc["_from"])
	require.Equal(t, "accounts/addr-b", doc["_to"])
	require.Equal(t, int64(10), doc["amount"])
}

func TestMapPaymentFieldsV2EmptyPaymentsIsRejected(t *testing.T) {
	_, err := mapPaymentFields("payment_v2", []byte(`{"payer":"addr-a","payments":[]}`), 1700000002)
	require.Error(t, err)
}

func TestMapPaymentFieldsUnknownTypeIsRejected(t *testing.T) {
	_, err := mapPaymentFields("payment_v3", []byte(`{}`), 1700000003)
	require.Error(t, err)
}

func TestMapPaymentFieldsKeyIsContentAddressed(t *testing.T) {
	raw := []byte(`{"payer":"addr-a","payee":"addr-b","amount":500}`)
	docA, err := mapPaymentFields("payment_v1", raw, 1700000000)
	require.NoError(t, err)
	docB, err := mapPaymentFields("payment_v1", raw, 1700000000)
	require.NoError(t, err)
	require.Equal(t, docA["_key"], docB["_key"], "identical fields must derive identical keys (I1/I3)")
}
