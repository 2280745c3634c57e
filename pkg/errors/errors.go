package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrValidation
	ErrSchedule
	ErrConflict
	ErrIllegalTransition
	ErrPersistence
	ErrTooManyRequests
)

// AppError represents an application error. Key identifies the message in the
// localized catalog; Message is the English rendering kept for logs.
type AppError struct {
	Code       ErrorCode         `json:"code"`
	Key        string            `json:"key"`
	Message    string            `json:"message"`
	Params     map[string]string `json:"params,omitempty"`
	ExistingID string            `json:"existing_appointment_id,omitempty"`
	Retryable  bool              `json:"retryable,omitempty"`
	Err        error             `json:"-"`

	status int
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

// StatusCode maps the error to an HTTP status.
func (e *AppError) StatusCode() int {
	if e.status != 0 {
		return e.status
	}
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest, ErrValidation, ErrSchedule:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrConflict, ErrIllegalTransition:
		return http.StatusConflict
	case ErrTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Localized renders the message for the given locale.
func (e *AppError) Localized(locale string) string {
	return Localize(e.Key, locale, e.Params)
}

func newError(code ErrorCode, key string, params map[string]string, err error) *AppError {
	return &AppError{
		Code:    code,
		Key:     key,
		Message: Localize(key, DefaultLocale, params),
		Params:  params,
		Err:     err,
	}
}

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return newError(ErrNotFound, KeyNotFound, map[string]string{"resource": resource}, err)
}

func NewBadRequest(message string, err error) *AppError {
	return newError(ErrBadRequest, KeyBadRequest, map[string]string{"detail": message}, err)
}

func NewInternal(err error) *AppError {
	return newError(ErrInternal, KeyInternal, nil, err)
}

// NewForbidden reports an authenticated actor acting outside its role. An
// empty key uses the generic message.
func NewForbidden(key string, params map[string]string, err error) *AppError {
	if key == "" {
		key = KeyForbidden
	}
	return newError(ErrForbidden, key, params, err)
}

func NewValidation(key string, params map[string]string, err error) *AppError {
	return newError(ErrValidation, key, params, err)
}

// NewSchedule reports a slot that violates the provider's availability.
func NewSchedule(key string, params map[string]string) *AppError {
	return newError(ErrSchedule, key, params, nil)
}

// NewConflict reports a duplicate active booking.
func NewConflict(existingID string) *AppError {
	e := newError(ErrConflict, KeyDuplicateBooking, map[string]string{"id": existingID}, nil)
	e.ExistingID = existingID
	return e
}

// NewIllegalTransition reports a state machine violation. retryable is set
// when the caller lost a race and may refetch and try again.
func NewIllegalTransition(status, action string, retryable bool) *AppError {
	key := KeyIllegalTransition
	if retryable {
		key = KeyStaleTicket
	}
	e := newError(ErrIllegalTransition, key, map[string]string{"status": status, "action": action}, nil)
	e.Retryable = retryable
	return e
}

// NewPersistence reports a store failure. status is 400 for diagnosable
// failures the user can fix and 500 otherwise.
func NewPersistence(key string, status int, err error) *AppError {
	e := newError(ErrPersistence, key, nil, err)
	e.status = status
	return e
}

func NewTooManyRequests() *AppError {
	return newError(ErrTooManyRequests, KeyTooManyRequests, nil, nil)
}

func Unauthorized(err error) *AppError {
	return newError(ErrUnauthorized, KeyUnauthorized, nil, err)
}

// As extracts an *AppError from the chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
