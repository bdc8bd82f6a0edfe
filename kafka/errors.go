package kafka

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
)

// ErrorClass tells a producer what to do with a failed write.
type ErrorClass int

const (
	// ClassNone is returned for a nil error.
	ClassNone ErrorClass = iota
	// ClassRetryable errors may succeed on a later attempt.
	ClassRetryable
	// ClassFatal errors fail every attempt: bad topic, oversized message,
	// rejected credentials.
	ClassFatal
	// ClassUnknown errors are retried until the attempt budget runs out.
	ClassUnknown
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassRetryable:
		return "retryable"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

var fatalCodes = []kafkago.Error{
	kafkago.MessageSizeTooLarge,
	kafkago.InvalidTopic,
	kafkago.TopicAuthorizationFailed,
	kafkago.ClusterAuthorizationFailed,
	kafkago.SASLAuthenticationFailed,
	kafkago.UnsupportedSASLMechanism,
	kafkago.InvalidRequiredAcks,
}

// Classify inspects err, unwrapping kafka-go write errors, and reports
// whether writing again can help.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassFatal
	}

	var writeErrs kafkago.WriteErrors
	if errors.As(err, &writeErrs) {
		return classifyAll(writeErrs)
	}

	var code kafkago.Error
	if errors.As(err, &code) {
		for _, f := range fatalCodes {
			if code == f {
				return ClassFatal
			}
		}
		if code.Temporary() || code.Timeout() {
			return ClassRetryable
		}
		return ClassUnknown
	}

	if IsConnectionError(err) {
		return ClassRetryable
	}
	return ClassUnknown
}

// classifyAll reduces per-message errors: one fatal message fails the batch.
func classifyAll(errs kafkago.WriteErrors) ErrorClass {
	out := ClassNone
	for _, e := range errs {
		switch c := Classify(e); {
		case c == ClassFatal:
			return ClassFatal
		case c > out:
			out = c
		}
	}
	return out
}

// IsConnectionError reports whether err comes from the network rather than
// from a broker response.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	// kafka-go protocol errors also satisfy net.Error.
	var code kafkago.Error
	if errors.As(err, &code) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range []string{"connection refused", "connection reset", "broken pipe", "no route to host"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsNonRetryableError reports whether retrying err is pointless.
func IsNonRetryableError(err error) bool { return Classify(err) == ClassFatal }
