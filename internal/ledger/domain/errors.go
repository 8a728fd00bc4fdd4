package domain

import "errors"

var (
	ErrZeroAmount     = errors.New("zero_amount")
	ErrDuplicateEntry = errors.New("duplicate_entry")
	ErrNotFound       = errors.New("collection_not_found")
	ErrInvalidDomain  = errors.New("invalid_domain")
	ErrInvalidKind    = errors.New("invalid_kind")
)
