package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/kbukum/mira/engine"
	"github.com/kbukum/mira/httpclient"
	"github.com/kbukum/mira/logger"
)

var (
	// ErrNoAddress is returned when the engine has no host or port.
	ErrNoAddress = errors.New("fetcher: engine address is not set")
	// ErrDecode is returned when a body is neither JSON nor Prometheus text.
	ErrDecode = errors.New("fetcher: undecodable payload")
)

const (
	contentTypeJSON       = "application/json"
	contentTypePrometheus = "text/plain"
)

// Fetcher polls engine endpoints.
type Fetcher struct {
	client *httpclient.Client
	log    *logger.Logger
}

var _ engine.StatusFetcher = (*Fetcher)(nil)

// New creates a fetcher.
func New(cfg Config, log *logger.Logger) (*Fetcher, error) {
	cfg.ApplyDefaults()
	client, err := httpclient.New(cfg.client())
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Fetcher{client: client, log: log.WithComponent("fetcher")}, nil
}

// Fetch GETs http://host:port/path and decodes the body by content type.
func (f *Fetcher) Fetch(ctx context.Context, host string, port int, path string) (any, error) {
	if host == "" || port <= 0 {
		return nil, ErrNoAddress
	}
	url := "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + path

	resp, err := f.client.Get(ctx, url, http.Header{
		"Accept": {contentTypeJSON + ", " + contentTypePrometheus + ";q=0.5"},
	})
	if err != nil {
		f.log.Debug("engine request failed", logger.Fields(logger.FieldAddress, url, logger.FieldError, err.Error()))
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	payload, err := decode(resp)
	if err != nil {
		f.log.Warn("engine returned undecodable payload", logger.Fields(logger.FieldAddress, url, logger.FieldError, err.Error()))
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return payload, nil
}

// decode treats text/plain as Prometheus text and everything else as JSON,
// since engines do not always set a content type on their health endpoint.
func decode(resp *httpclient.Response) (any, error) {
	if resp.ContentType() == contentTypePrometheus {
		families, err := parsePrometheus(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return families, nil
	}
	var v any
	if err := json.Unmarshal(resp.Body, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return v, nil
}

// Close drops idle engine connections.
func (f *Fetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
