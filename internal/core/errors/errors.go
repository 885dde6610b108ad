package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Connection authentication
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid or expired credential")
	ErrUnknownUser       = errors.New("unknown user")

	// Operation authorization
	ErrNotAuthenticated = errors.New("connection is not authenticated")
	ErrNotAuthorized    = errors.New("not authorized to perform this action")

	// Payload validation
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrIncidentRequired = errors.New("incident ID is required")
	ErrTeamRequired     = errors.New("team ID is required")
	ErrEmptyContent     = errors.New("message content cannot be empty")
	ErrContentTooLong   = errors.New("message content exceeds maximum length")
	ErrSenderRequired   = errors.New("sender is required")
	ErrUnknownEvent     = errors.New("unknown event")

	// Collaborator failures
	ErrUserNotFound       = errors.New("user not found")
	ErrMessageNotSaved    = errors.New("failed to save message")
	ErrHistoryUnavailable = errors.New("failed to fetch message history")
	ErrRosterUnavailable  = errors.New("failed to fetch team roster")

	// Notification jobs
	ErrInvalidJob = errors.New("invalid notification job")

	// Generic
	ErrNotFound    = errors.New("resource not found")
	ErrInternal    = errors.New("internal server error")
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context for HTTP and websocket responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Err:        ErrNotAuthenticated,
		Message:    message,
		Code:       "UNAUTHORIZED",
		StatusCode: 401,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Err:        ErrNotAuthorized,
		Message:    message,
		Code:       "FORBIDDEN",
		StatusCode: 403,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

func NewValidationError(err error, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "VALIDATION_ERROR",
		StatusCode: 422,
		Details:    details,
	}
}

func NewRateLimitError() *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		Message:    "Too many requests. Please try again later.",
		Code:       "RATE_LIMITED",
		StatusCode: 429,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// codes maps sentinel errors to the machine-readable codes sent to clients.
var codes = []struct {
	err  error
	code string
}{
	{ErrMissingCredential, "MISSING_CREDENTIAL"},
	{ErrInvalidCredential, "INVALID_CREDENTIAL"},
	{ErrUnknownUser, "UNKNOWN_USER"},
	{ErrNotAuthenticated, "NOT_AUTHENTICATED"},
	{ErrNotAuthorized, "NOT_AUTHORIZED"},
	{ErrIncidentRequired, "INVALID_PAYLOAD"},
	{ErrTeamRequired, "INVALID_PAYLOAD"},
	{ErrInvalidPayload, "INVALID_PAYLOAD"},
	{ErrEmptyContent, "EMPTY_CONTENT"},
	{ErrContentTooLong, "CONTENT_TOO_LONG"},
	{ErrUnknownEvent, "UNKNOWN_EVENT"},
	{ErrMessageNotSaved, "MESSAGE_NOT_SAVED"},
	{ErrHistoryUnavailable, "HISTORY_UNAVAILABLE"},
	{ErrRateLimited, "RATE_LIMITED"},
	{ErrNotFound, "NOT_FOUND"},
}

// CodeOf returns the client-facing code for err.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "INTERNAL_ERROR"
}

// IsClientError reports whether err is caused by the caller rather than the server.
func IsClientError(err error) bool {
	return CodeOf(err) != "INTERNAL_ERROR"
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
