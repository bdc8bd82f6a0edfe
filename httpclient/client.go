package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
)

// Client polls HTTP endpoints over pooled keep-alive connections.
type Client struct {
	hc      *http.Client
	header  http.Header
	maxBody int64
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ContentType is the media type without parameters, lower-cased.
func (r *Response) ContentType() string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

// New creates a client. Zero-valued config fields take their defaults.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	tr.IdleConnTimeout = cfg.IdleConnTimeout

	header := make(http.Header, len(cfg.Headers))
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}
	return &Client{
		hc:      &http.Client{Transport: tr, Timeout: cfg.Timeout},
		header:  header,
		maxBody: cfg.MaxBodyBytes,
	}, nil
}

// Get fetches url with the client's default headers overlaid by header.
// A non-2xx answer returns both the Response and a KindStatus *Error. A body
// larger than MaxBodyBytes is a KindBodyTooLarge *Error, never a truncated
// Response.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &Error{Kind: KindRequest, URL: url, Err: err}
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &Error{Kind: transportKind(ctx, err), URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var body io.Reader = resp.Body
	if c.maxBody > 0 {
		body = io.LimitReader(resp.Body, c.maxBody+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &Error{Kind: transportKind(ctx, err), URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if c.maxBody > 0 && int64(len(data)) > c.maxBody {
		return nil, &Error{Kind: KindBodyTooLarge, URL: url, StatusCode: resp.StatusCode, Body: data[:c.maxBody]}
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}
	if se := statusError(url, resp.StatusCode, data); se != nil {
		return out, se
	}
	return out, nil
}

// CloseIdleConnections drops kept-alive connections.
func (c *Client) CloseIdleConnections() {
	c.hc.CloseIdleConnections()
}

func transportKind(ctx context.Context, err error) Kind {
	var ne net.Error
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return KindTimeout
	}
	return KindConnection
}
