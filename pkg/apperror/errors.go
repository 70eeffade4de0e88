package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Wallet (WAL) ----

func ErrInsufficientBalance() *AppError {
	return New("WAL_001", "Insufficient gold balance", http.StatusPaymentRequired)
}

// ErrResourceBusy signals lock contention. Transient — the caller should
// retry with backoff.
func ErrResourceBusy(resource string) *AppError {
	return New("WAL_002", fmt.Sprintf("%s is busy, retry later", resource), http.StatusConflict)
}

func ErrInvalidAmount() *AppError {
	return New("WAL_003", "Invalid amount", http.StatusBadRequest)
}

// ---- Payment completion (PAY) ----

// ErrAlreadyProcessed is not a failure: an at-least-once delivery system is
// expected to re-deliver callbacks, and idempotent callers treat this as
// success.
func ErrAlreadyProcessed() *AppError {
	return New("PAY_001", "Transaction already processed", http.StatusOK)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_002", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrUnknownProvider(name string) *AppError {
	return New("PAY_003", fmt.Sprintf("unknown payment provider %q", name), http.StatusBadRequest)
}

// ---- Security (SEC) ----

func ErrSignatureInvalid() *AppError {
	return New("SEC_001", "Invalid callback signature", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("SEC_002", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrLockUnavailable(err error) *AppError {
	return Wrap("SYS_002", "Coordination store unavailable", http.StatusServiceUnavailable, err)
}

// Validation returns a request-validation error.
func Validation(message string) *AppError {
	return New("WAL_003", message, http.StatusBadRequest)
}
