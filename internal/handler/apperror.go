package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrSelfTransfer     = &AppError{http.StatusBadRequest, "SELF_TRANSFER_NOT_ALLOWED", "Cannot transfer to the same account"}
	ErrAccountNotFound  = &AppError{http.StatusBadRequest, "ACCOUNT_NOT_FOUND", "Account not found"}
	ErrInvalidAmount    = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrNotAccountOwner  = &AppError{http.StatusUnauthorized, "NOT_ACCOUNT_OWNER", "Account does not belong to the authenticated user"}
	ErrLimitExceeded    = &AppError{http.StatusForbidden, "LIMIT_EXCEEDED", "Transfer would exceed the account's overdraft limit"}
	ErrTooManyConflicts = &AppError{http.StatusTooManyRequests, "TOO_MANY_CONFLICTS", "Transfer could not be committed due to concurrent activity, please retry"}
)
