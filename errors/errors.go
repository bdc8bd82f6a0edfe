package errors

import (
	"fmt"
	"maps"
)

// AppError is an error that knows how it is presented to API clients.
type AppError struct {
	Code    Code
	Message string
	Details map[string]any
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches any *AppError with the same code, so callers can test
// errors.Is(err, &AppError{Code: CodeNotFound}).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// HTTPStatus is the status derived from the code.
func (e *AppError) HTTPStatus() int { return e.Code.HTTPStatus() }

// With returns a copy of e carrying one more detail.
func (e *AppError) With(key string, value any) *AppError {
	out := *e
	out.Details = maps.Clone(e.Details)
	if out.Details == nil {
		out.Details = make(map[string]any, 1)
	}
	out.Details[key] = value
	return &out
}

// WithCause sets the underlying error and returns e.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// DiscoveryUnavailable reports a failed orchestrator listing in mode. The
// cause is part of the message: it is the only hint clients get about why
// no engines are listed.
func DiscoveryUnavailable(mode string, cause error) *AppError {
	msg := "Engine discovery failed."
	if cause != nil {
		msg = fmt.Sprintf("Engine discovery failed: %v", cause)
	}
	return &AppError{
		Code:    CodeDiscoveryUnavailable,
		Message: msg,
		Details: map[string]any{"mode": mode},
		Cause:   cause,
	}
}

// NotFound reports an unknown resource id.
func NotFound(resource, id string) *AppError {
	e := &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("The requested %s was not found.", resource),
		Details: map[string]any{"resource": resource},
	}
	if id != "" {
		e.Details["id"] = id
	}
	return e
}

// InvalidInput reports a rejected request or config value. field may be
// empty when the problem is not tied to one field.
func InvalidInput(field, reason string) *AppError {
	e := &AppError{Code: CodeInvalidInput, Message: "Invalid input: " + reason}
	if field != "" {
		e.Details = map[string]any{"field": field}
	}
	return e
}

// Internal hides cause behind a generic message.
func Internal(cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: "An unexpected error occurred.", Cause: cause}
}
