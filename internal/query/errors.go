package query

import "errors"

var (
	errPaymentV2Empty     = errors.New("payment_v2 fields missing a payments entry")
	errUnknownPaymentType = errors.New("unrecognized payment transaction type")
)
