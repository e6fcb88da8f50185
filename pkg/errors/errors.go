package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable failure category returned to API clients.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidRange      Kind = "INVALID_RANGE"
	KindInvalidSlot       Kind = "INVALID_SLOT"
	KindInvalidTemplate   Kind = "INVALID_TEMPLATE"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindBookingConflict   Kind = "BOOKING_CONFLICT"
	KindSlotExpired       Kind = "SLOT_EXPIRED"
	KindForbidden         Kind = "FORBIDDEN"
	KindDuplicateOverride Kind = "DUPLICATE_OVERRIDE"
	KindInternal          Kind = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind to an HTTP status. The error handler
// middleware looks for this method.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindBookingConflict, KindDuplicateOverride:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidRange, KindInvalidSlot, KindInvalidTemplate, KindInvalidTransition:
		return http.StatusBadRequest
	case KindSlotExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// KindOf extracts the Kind from err, or KindInternal when err is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err is an AppError of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func NotFound(resource string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func InvalidRange(message string) *AppError {
	return &AppError{Kind: KindInvalidRange, Message: message}
}

func InvalidSlot(message string) *AppError {
	return &AppError{Kind: KindInvalidSlot, Message: message}
}

func InvalidTemplate(message string) *AppError {
	return &AppError{Kind: KindInvalidTemplate, Message: message}
}

func InvalidTransition(message string) *AppError {
	return &AppError{Kind: KindInvalidTransition, Message: message}
}

func BookingConflict(message string) *AppError {
	return &AppError{Kind: KindBookingConflict, Message: message}
}

func SlotExpired(message string) *AppError {
	return &AppError{Kind: KindSlotExpired, Message: message}
}

func Forbidden(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func DuplicateOverride(message string) *AppError {
	return &AppError{Kind: KindDuplicateOverride, Message: message}
}

func Internal(err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Message: "internal server error",
		Err:     err,
	}
}
