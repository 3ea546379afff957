package domain

import "fmt"

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrConflict(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Message: msg, Status: 409}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Status: 401}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Status: 403}
}

func ErrInsufficientBalance() *AppError {
	return &AppError{Code: "INSUFFICIENT_BALANCE", Message: "insufficient balance", Status: 400}
}

func ErrIdempotent(existingTxID string) *AppError {
	return &AppError{Code: "IDEMPOTENT", Message: fmt.Sprintf("transaction already exists: %s", existingTxID), Status: 200}
}

func ErrAccountLocked(msg string) *AppError {
	return &AppError{Code: "ACCOUNT_LOCKED", Message: msg, Status: 429}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}

// Transfer-domain error constructors (spec §7).

func ErrSelfTransferForbidden() *AppError {
	return &AppError{Code: "SELF_TRANSFER_FORBIDDEN", Message: "cannot transfer to yourself", Status: 400}
}

func ErrInvalidAmount() *AppError {
	return &AppError{Code: "INVALID_AMOUNT", Message: "amount must be a positive integer", Status: 422}
}

func ErrInvalidIdempotencyKey() *AppError {
	return &AppError{Code: "INVALID_IDEMPOTENCY_KEY", Message: "idempotency key must not be empty", Status: 422}
}

func ErrUserNotFound(id int64) *AppError {
	return &AppError{Code: "USER_NOT_FOUND", Message: fmt.Sprintf("user %d not found", id), Status: 404}
}

func ErrReceiverNotFound() *AppError {
	return &AppError{Code: "RECEIVER_NOT_FOUND", Message: "no user with that email", Status: 404}
}

func ErrEmailInUse() *AppError {
	return &AppError{Code: "EMAIL_IN_USE", Message: "email is already registered", Status: 422}
}

func ErrValidationFailed(msg string) *AppError {
	return &AppError{Code: "VALIDATION_FAILED", Message: msg, Status: 422}
}

func ErrTransientLockContention() *AppError {
	return &AppError{Code: "TRANSIENT_LOCK_CONTENTION", Message: "could not complete transfer due to contention, please retry", Status: 503}
}

func ErrDeadlineExceeded() *AppError {
	return &AppError{Code: "DEADLINE_EXCEEDED", Message: "operation did not complete before the caller's deadline", Status: 504}
}

func ErrTransactionNotVisible() *AppError {
	return &AppError{Code: "NOT_FOUND", Message: "transaction not found", Status: 404}
}
