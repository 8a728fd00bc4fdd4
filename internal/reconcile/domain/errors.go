package domain

import "errors"

var (
	ErrNotCredit     = errors.New("not_credit")
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidRef    = errors.New("invalid_collection_ref")
	ErrNotPool       = errors.New("not_pool_kind")
	ErrInvalidDate   = errors.New("invalid_date")
)
