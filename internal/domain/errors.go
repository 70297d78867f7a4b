package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrAccountNotFound      = errors.New("account not found")
	ErrNotAccountOwner      = errors.New("account not associated with user")
	ErrSelfTransfer         = errors.New("cannot transfer to same account")
	ErrLimitExceeded        = errors.New("limit exceeded")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrVersionConflict      = errors.New("optimistic lock conflict")
	ErrDuplicateTransaction = errors.New("transaction already executed")
	ErrRetryBudgetExhausted = errors.New("commit retry budget exhausted")
)
