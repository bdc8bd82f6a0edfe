package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the broad cause of a failed request.
type Kind string

const (
	KindTimeout    Kind = "timeout"
	KindConnection Kind = "connection"
	// KindStatus means the server answered with a non-2xx status.
	KindStatus Kind = "status"
	// KindRequest means the request could not be built.
	KindRequest Kind = "request"
	// KindBodyTooLarge means the body exceeded Config.MaxBodyBytes.
	KindBodyTooLarge Kind = "body_too_large"
)

// Error is a failed request.
type Error struct {
	Kind Kind
	URL  string
	// StatusCode and Body are set for KindStatus. For KindBodyTooLarge, Body
	// holds the first MaxBodyBytes bytes.
	StatusCode int
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("GET %s: HTTP %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	case KindBodyTooLarge:
		return fmt.Sprintf("GET %s: body exceeds %d bytes", e.URL, len(e.Body))
	}
	return fmt.Sprintf("GET %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the same request may succeed later: network
// failures, 429 and 5xx.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindConnection:
		return true
	case KindStatus:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
	default:
		return false
	}
}

func statusError(url string, code int, body []byte) *Error {
	if code >= 200 && code < 300 {
		return nil
	}
	return &Error{Kind: KindStatus, URL: url, StatusCode: code, Body: body}
}

// KindOf returns the kind of err, false when err holds no *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

// StatusOf returns the HTTP status carried by err, 0 if there is none.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// IsTimeout reports a request that ran out of time.
func IsTimeout(err error) bool {
	k, _ := KindOf(err)
	return k == KindTimeout
}

// IsConnection reports a request that never got a response.
func IsConnection(err error) bool {
	k, _ := KindOf(err)
	return k == KindConnection
}

// IsRetryable reports whether err is an *Error worth retrying.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}
