package errors

import stderrors "errors"

// Body is the JSON document served for a failed request.
type Body struct {
	Error BodyError `json:"error"`
}

// BodyError is the "error" member of Body.
type BodyError struct {
	Code      Code           `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// Body renders e for a client. The cause is never included.
func (e *AppError) Body(requestID string) Body {
	return Body{Error: BodyError{
		Code:      e.Code,
		Message:   e.Message,
		Retryable: e.Code.Retryable(),
		Details:   e.Details,
		RequestID: requestID,
	}}
}

// As returns the first *AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

// IsAppError reports whether err's chain holds an *AppError.
func IsAppError(err error) bool {
	_, ok := As(err)
	return ok
}

// From returns err as an AppError, wrapping anything else as Internal.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return Internal(err)
}
