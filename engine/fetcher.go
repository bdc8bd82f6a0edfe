package engine

import "context"

// StatusFetcher performs one GET against an engine endpoint and returns the
// decoded payload.
type StatusFetcher interface {
	Fetch(ctx context.Context, host string, port int, path string) (any, error)
}

// FetcherFunc adapts a function to StatusFetcher.
type FetcherFunc func(ctx context.Context, host string, port int, path string) (any, error)

func (f FetcherFunc) Fetch(ctx context.Context, host string, port int, path string) (any, error) {
	return f(ctx, host, port, path)
}

// Observer receives the outcome of every applied check.
type Observer interface {
	CheckCompleted(ctx context.Context, check Check, err error)
}
