package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code       string
	Message    string
	Detail     string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail

	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err

	return e
}

const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
	ErrCodeTransportFailure    = "TRANSPORT_FAILURE"
	ErrCodeGatewayRejected     = "GATEWAY_REJECTED"
	ErrCodeInvalidSignature    = "INVALID_SIGNATURE"
	ErrCodeMalformedPayload    = "MALFORMED_PAYLOAD"
	ErrCodeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	ErrCodeAmountMismatch      = "AMOUNT_MISMATCH"
	ErrCodeIllegalTransition   = "ILLEGAL_STATE_TRANSITION"
	ErrCodeConfiguration       = "CONFIGURATION_ERROR"
)

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message, http.StatusBadRequest)
}

func BadRequestError(message string) *AppError {
	return NewAppError(ErrCodeBadRequest, message, http.StatusBadRequest)
}

func NotFoundError(message string) *AppError {
	return NewAppError(ErrCodeNotFound, message, http.StatusNotFound)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

func DatabaseError(message string) *AppError {
	return NewAppError(ErrCodeDatabaseError, message, http.StatusInternalServerError)
}

// TransportFailureError covers network-level gateway failures after the retry
// budget is exhausted. Retrying again later is safe.
func TransportFailureError(message string) *AppError {
	return NewAppError(ErrCodeTransportFailure, message, http.StatusBadGateway)
}

// GatewayRejectedError covers application-level gateway denials. Retrying is
// not safe and may duplicate side effects on the gateway.
func GatewayRejectedError(message string) *AppError {
	return NewAppError(ErrCodeGatewayRejected, message, http.StatusUnprocessableEntity)
}

func InvalidSignatureError(message string) *AppError {
	return NewAppError(ErrCodeInvalidSignature, message, http.StatusBadRequest)
}

func MalformedPayloadError(message string) *AppError {
	return NewAppError(ErrCodeMalformedPayload, message, http.StatusBadRequest)
}

func TransactionNotFoundError(message string) *AppError {
	return NewAppError(ErrCodeTransactionNotFound, message, http.StatusNotFound)
}

func AmountMismatchError(message string) *AppError {
	return NewAppError(ErrCodeAmountMismatch, message, http.StatusBadRequest)
}

func IllegalTransitionError(message string) *AppError {
	return NewAppError(ErrCodeIllegalTransition, message, http.StatusConflict)
}

func ConfigurationError(message string) *AppError {
	return NewAppError(ErrCodeConfiguration, message, http.StatusInternalServerError)
}

func IsAppError(err error) (*AppError, bool) {
	var appError *AppError

	if errors.As(err, &appError) {
		return appError, true
	}

	return nil, false
}

// field validation error.
func AddValidationError(field, reason string) *AppError {
	return ValidationError(fmt.Sprintf("Invalid field '%s': %s", field, reason))
}
