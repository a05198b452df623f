package service

import "errors"

var (
	ErrNotFound           = errors.New("error not found")
	ErrInvalidOrder       = errors.New("error invalid order")
	ErrQuoteUnavailable   = errors.New("error quote unavailable")
	ErrInsufficientFunds  = errors.New("error insufficient funds")
	ErrInsufficientShares = errors.New("error insufficient shares")
	ErrMigrationConflict  = errors.New("error account already has a ledger")
	ErrHistoryUnavailable = errors.New("error history unavailable")
	ErrRateLimited        = errors.New("error rate limited")
)
