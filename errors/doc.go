// Package errors defines AppError, the error type that crosses the HTTP
// boundary. Its Code decides the response status and whether clients may
// retry; Body renders it as {"error": {...}}.
package errors
