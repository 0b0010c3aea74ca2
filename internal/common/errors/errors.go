// Package errors provides standardized error handling for the portal.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	ErrCodeBackendRejected    ErrorCode = "BACKEND_REJECTED"
	ErrCodeBackendDecode      ErrorCode = "BACKEND_DECODE_FAILED"

	ErrCodeSessionMissing   ErrorCode = "SESSION_MISSING"
	ErrCodeSessionStore     ErrorCode = "SESSION_STORE_FAILED"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeEmptySelection   ErrorCode = "EMPTY_SELECTION"
	ErrCodeUnknownFranchise ErrorCode = "UNKNOWN_FRANCHISE"
	ErrCodeWizardNotLoaded  ErrorCode = "WIZARD_NOT_LOADED"

	ErrCodeOAuthParamsMissing ErrorCode = "OAUTH_PARAMS_MISSING"
	ErrCodeOAuthInProgress    ErrorCode = "OAUTH_IN_PROGRESS"
	ErrCodeOAuthFailed        ErrorCode = "OAUTH_FAILED"

	ErrCodeOnboardingStep ErrorCode = "ONBOARDING_INVALID_STEP"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// GenericMessage is shown whenever the backend could not be reached or gave
// no usable detail.
const GenericMessage = "Something went wrong. Please try again."

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Status    int                    `json:"-"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// UserMessage is the text safe to show on screen.
func (e *StandardError) UserMessage() string {
	if e.Message == "" {
		return GenericMessage
	}
	return e.Message
}

// HTTPStatus is the status the portal answers with for this error.
func (e *StandardError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeBackendUnavailable:
		return http.StatusBadGateway
	case ErrCodeBackendRejected:
		if e.Status >= 400 && e.Status < 500 {
			return e.Status
		}
		return http.StatusBadGateway
	case ErrCodeBackendDecode:
		return http.StatusBadGateway
	case ErrCodeSessionMissing:
		return http.StatusUnauthorized
	case ErrCodeValidationFailed, ErrCodeEmptySelection, ErrCodeUnknownFranchise, ErrCodeOAuthParamsMissing:
		return http.StatusBadRequest
	case ErrCodeWizardNotLoaded, ErrCodeOAuthInProgress, ErrCodeOnboardingStep:
		return http.StatusConflict
	case ErrCodeOAuthFailed:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// NewBackendUnavailableError wraps a transport failure. The message is always
// the generic retry text.
func NewBackendUnavailableError(endpoint string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendUnavailable,
		Message:   GenericMessage,
		Details:   fmt.Sprintf("endpoint: %s, error: %v", endpoint, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewBackendRejectedError reports a non-2xx response. detail is the backend
// payload's "detail" field and is shown verbatim when present.
func NewBackendRejectedError(endpoint string, status int, detail string) *StandardError {
	msg := detail
	if msg == "" {
		msg = GenericMessage
	}
	return &StandardError{
		Code:      ErrCodeBackendRejected,
		Message:   msg,
		Details:   fmt.Sprintf("endpoint: %s, status: %d", endpoint, status),
		Status:    status,
		Retryable: status >= 500,
		Timestamp: time.Now().UTC(),
	}
}

func NewBackendDecodeError(endpoint string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendDecode,
		Message:   GenericMessage,
		Details:   fmt.Sprintf("endpoint: %s, error: %v", endpoint, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewSessionMissingError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionMissing,
		Message:   "Your session has expired. Please sign in again.",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSessionStoreError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionStore,
		Message:   GenericMessage,
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewEmptySelectionError() *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptySelection,
		Message:   "Please select at least one franchise",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnknownFranchiseError(franchiseNumber string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownFranchise,
		Message:   "Franchise not found in the loaded list",
		Details:   fmt.Sprintf("franchiseNumber: %s", franchiseNumber),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewWizardNotLoadedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeWizardNotLoaded,
		Message:   "Franchise list is not loaded. Please reload the page.",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewOAuthParamsMissingError(missing string) *StandardError {
	return &StandardError{
		Code:      ErrCodeOAuthParamsMissing,
		Message:   "QuickBooks did not return the expected authorization data. Please try connecting again.",
		Details:   fmt.Sprintf("missing: %s", missing),
		Retryable: false,
		Metadata:  map[string]interface{}{"retryUrl": "/"},
		Timestamp: time.Now().UTC(),
	}
}

func NewOAuthInProgressError() *StandardError {
	return &StandardError{
		Code:      ErrCodeOAuthInProgress,
		Message:   "Your QuickBooks connection is already being processed.",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewOAuthFailedError keeps the user-facing message of the underlying error
// when it has one.
func NewOAuthFailedError(err error) *StandardError {
	msg := "Failed to connect to QuickBooks. Please try again."
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) && stdErr.Code == ErrCodeBackendRejected && stdErr.Message != GenericMessage {
		msg = stdErr.Message
	}
	return &StandardError{
		Code:      ErrCodeOAuthFailed,
		Message:   msg,
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"retryUrl": "/"},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewOnboardingStepError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeOnboardingStep,
		Message:   "This onboarding step is not available right now.",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   GenericMessage,
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// StatusOf returns the backend HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) && stdErr.Code == ErrCodeBackendRejected {
		return stdErr.Status
	}
	return 0
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// HasCode reports whether err is a StandardError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

// GetErrorCategory buckets codes for logging.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeBackendUnavailable, ErrCodeBackendDecode, ErrCodeSessionStore:
		return "TECHNICAL"
	case ErrCodeBackendRejected:
		return "UPSTREAM"
	case ErrCodeSessionMissing, ErrCodeOAuthParamsMissing, ErrCodeOAuthInProgress, ErrCodeOAuthFailed:
		return "AUTHENTICATION"
	case ErrCodeValidationFailed, ErrCodeEmptySelection, ErrCodeUnknownFranchise,
		ErrCodeWizardNotLoaded, ErrCodeOnboardingStep:
		return "BUSINESS"
	default:
		return "UNKNOWN"
	}
}
