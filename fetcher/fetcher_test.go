package fetcher

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/mira/httpclient"
)

const promText = `# HELP qix_active_sessions Number of active sessions
# TYPE qix_active_sessions gauge
qix_active_sessions 3
# HELP http_requests_total Requests served
# TYPE http_requests_total counter
http_requests_total{code="200",method="get"} 1027
http_requests_total{code="400",method="get"} 3
# HELP rpc_duration_seconds RPC latency
# TYPE rpc_duration_seconds summary
rpc_duration_seconds{quantile="0.5"} 0.05
rpc_duration_seconds{quantile="0.99"} 0.2
rpc_duration_seconds_sum 17.5
rpc_duration_seconds_count 200
# TYPE request_size_bytes histogram
request_size_bytes_bucket{le="100"} 2
request_size_bytes_bucket{le="+Inf"} 5
request_size_bytes_sum 900
request_size_bytes_count 5
`

func serve(t *testing.T, handler http.HandlerFunc) (host string, port int) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	h, p, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err = strconv.Atoi(p)
	require.NoError(t, err)
	return h, port
}

func newFetcher(t *testing.T) *Fetcher {
	t.Helper()
	f, err := New(Config{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestFetchJSON(t *testing.T) {
	host, port := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthcheck", r.URL.Path)
		assert.Contains(t, r.Header.Get("Accept"), "application/json")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"mem":{"committed":1024},"started":true,"apps":["a"]}`))
	})

	payload, err := newFetcher(t).Fetch(context.Background(), host, port, "/healthcheck")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"mem":     map[string]any{"committed": 1024.0},
		"started": true,
		"apps":    []any{"a"},
	}, payload)
}

func TestFetchJSONWithoutContentType(t *testing.T) {
	host, port := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte(`[1, 2]`))
	})
	payload, err := newFetcher(t).Fetch(context.Background(), host, port, "/metrics")
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0}, payload)
}

func TestFetchPrometheusText(t *testing.T) {
	host, port := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(promText))
	})

	payload, err := newFetcher(t).Fetch(context.Background(), host, port, "/metrics")
	require.NoError(t, err)

	families, ok := payload.([]any)
	require.True(t, ok)
	require.Len(t, families, 4)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.(map[string]any)["name"].(string))
	}
	assert.Equal(t, []string{"http_requests_total", "qix_active_sessions", "request_size_bytes", "rpc_duration_seconds"}, names)

	requests := families[0].(map[string]any)
	assert.Equal(t, "COUNTER", requests["type"])
	assert.Equal(t, "Requests served", requests["help"])
	metrics := requests["metrics"].([]any)
	require.Len(t, metrics, 2)
	assert.Contains(t, metrics, map[string]any{
		"value":  "1027",
		"labels": map[string]any{"code": "200", "method": "get"},
	})

	sessions := families[1].(map[string]any)
	assert.Equal(t, "GAUGE", sessions["type"])
	assert.Equal(t, []any{map[string]any{"value": "3"}}, sessions["metrics"])

	hist := families[2].(map[string]any)["metrics"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"100": "2", "+Inf": "5"}, hist["buckets"])
	assert.Equal(t, "5", hist["count"])
	assert.Equal(t, "900", hist["sum"])

	summary := families[3].(map[string]any)["metrics"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"0.5": "0.05", "0.99": "0.2"}, summary["quantiles"])
	assert.Equal(t, "200", summary["count"])
	assert.Equal(t, "17.5", summary["sum"])
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "engine starting", http.StatusServiceUnavailable)
			},
			check: func(t *testing.T, err error) {
				kind, ok := httpclient.KindOf(err)
				require.True(t, ok)
				assert.Equal(t, httpclient.KindStatus, kind)
				assert.Equal(t, http.StatusServiceUnavailable, httpclient.StatusOf(err))
				assert.True(t, httpclient.IsRetryable(err))
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"started":`))
			},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrDecode) },
		},
		{
			name: "invalid prometheus text",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				_, _ = w.Write([]byte("# TYPE x counter\nx{a=\"1\" 1\n"))
			},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrDecode) },
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			host, port := serve(t, tc.handler)
			_, err := newFetcher(t).Fetch(context.Background(), host, port, "/healthcheck")
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	body := "a_total 1\nqix_active_sessions 7\n"
	host, port := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(body))
	})
	f, err := New(Config{MaxBodyBytes: int64(len("a_total 1\n"))}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	payload, err := f.Fetch(context.Background(), host, port, "/metrics")
	assert.Nil(t, payload, "a cut-off exposition must not parse as a shorter one")
	kind, ok := httpclient.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, httpclient.KindBodyTooLarge, kind)

	f, err = New(Config{MaxBodyBytes: int64(len(body))}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	payload, err = f.Fetch(context.Background(), host, port, "/metrics")
	require.NoError(t, err)
	assert.Len(t, payload, 2)
}

func TestFetchWithoutAddress(t *testing.T) {
	f := newFetcher(t)
	_, err := f.Fetch(context.Background(), "", 9076, "/healthcheck")
	assert.ErrorIs(t, err, ErrNoAddress)
	_, err = f.Fetch(context.Background(), "10.0.0.1", 0, "/healthcheck")
	assert.ErrorIs(t, err, ErrNoAddress)
}

func TestFetchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	h, p, _ := net.SplitHostPort(srv.Listener.Addr().String())
	port, _ := strconv.Atoi(p)
	srv.Close()

	_, err := newFetcher(t).Fetch(context.Background(), h, port, "/healthcheck")
	assert.True(t, httpclient.IsConnection(err))
}
