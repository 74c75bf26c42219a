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

// ---- Provider Configuration (CFG) ----

func ErrUnknownProvider(name string) *AppError {
	return New("CFG_001", fmt.Sprintf("Payment provider %q is not configured", name), http.StatusBadRequest)
}

func ErrProviderInactive() *AppError {
	return New("CFG_002", "Payment gateway is not active", http.StatusBadRequest)
}

func ErrServerMaintenance() *AppError {
	return New("CFG_003", "Server under maintenance", http.StatusBadRequest)
}

// ---- Validation (VAL) ----

func ErrInvalidAmount(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrMissingBankDetails() *AppError {
	return New("VAL_002", "Bank details are incomplete", http.StatusBadRequest)
}

// Validation returns a generic VAL_003 validation error.
func Validation(message string) *AppError {
	return New("VAL_003", message, http.StatusBadRequest)
}

// ---- Wallet & Ledger (PAY) ----

func ErrInsufficientBalance(available, required string) *AppError {
	return New("PAY_001",
		fmt.Sprintf("Insufficient balance. Available: %s, Required: %s", available, required),
		http.StatusPaymentRequired)
}

func ErrDuplicateTransaction() *AppError {
	return New("PAY_002", "Duplicate transaction id", http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_003", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Gateway (GTW) ----

func ErrGateway(message string, err error) *AppError {
	if message == "" {
		message = "Payment gateway error"
	}
	return Wrap("GTW_001", message, http.StatusBadGateway, err)
}

func ErrGatewayTimeout(err error) *AppError {
	return Wrap("GTW_002", "Payment gateway timed out", http.StatusGatewayTimeout, err)
}

func ErrInvalidCallbackSignature() *AppError {
	return New("GTW_003", "Invalid callback signature", http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrMerchantSuspended() *AppError {
	return New("AUTH_003", "Merchant account is suspended", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrLockTimeout(err error) *AppError {
	return Wrap("SYS_002", "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}
