package domain

import "errors"

var (
	ErrNotFound          = errors.New("not_found")
	ErrInvalidDate       = errors.New("invalid_date")
	ErrInvalidQty        = errors.New("invalid_qty")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidCustomer   = errors.New("invalid_customer")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidCategory   = errors.New("invalid_category")
	ErrInsufficientStock = errors.New("insufficient_stock")
	ErrJobClosed         = errors.New("job_closed")
)
