package apperrors

import (
	"fmt"
	"net/http"
)

type ErrorType string

// The taxonomy is deliberately flat and terminal: nothing is retried or
// recovered inside the core, and the settlement engine needs to distinguish
// every kind (missing data vs policy rejection vs stale feed).
const (
	ErrInvalidSource      ErrorType = "INVALID_SOURCE"
	ErrVerificationFailed ErrorType = "VERIFICATION_FAILED"
	ErrExpired            ErrorType = "EXPIRED"
	ErrStale              ErrorType = "STALE"
	ErrInvalidRating      ErrorType = "INVALID_RATING"
	ErrNotRated           ErrorType = "NOT_RATED"
	ErrSwapBlocked        ErrorType = "SWAP_BLOCKED"
	ErrInvalidRequest     ErrorType = "INVALID_REQUEST"
	ErrNotFound           ErrorType = "NOT_FOUND"
	ErrInternal           ErrorType = "INTERNAL_ERROR"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func Newf(errType ErrorType, format string, args ...any) *AppError {
	return New(errType, fmt.Sprintf(format, args...), nil)
}

// Is reports whether err is an AppError of the given type.
func Is(err error, errType ErrorType) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == errType
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidSource, ErrVerificationFailed, ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrExpired, ErrStale, ErrInvalidRating:
		return http.StatusUnprocessableEntity
	case ErrNotRated, ErrNotFound:
		return http.StatusNotFound
	case ErrSwapBlocked:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrInvalidSource:
		return "Check that the report belongs to the asset's configured feed."
	case ErrVerificationFailed:
		return "Check the feed's signer set and re-fetch the report."
	case ErrExpired, ErrStale:
		return "Fetch a fresh report from the feed."
	case ErrNotRated:
		return "Ingest a rating report for the asset before trading it."
	case ErrSwapBlocked:
		return "Trading is frozen for this pair until ratings improve."
	default:
		return ""
	}
}
