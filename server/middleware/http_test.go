package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/mira/logger"
	"github.com/kbukum/mira/server/middleware"
)

func captureLogger() (*logger.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "mira", buf), buf
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRecovery(t *testing.T) {
	log, buf := captureLogger()
	ok := middleware.Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	assert.Equal(t, http.StatusOK, serve(ok, httptest.NewRequest(http.MethodGet, "/", http.NoBody)).Code)

	boom := middleware.Recovery(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("registry corrupted")
	}))
	rr := serve(boom, httptest.NewRequest(http.MethodGet, "/v1/engines", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.NotContains(t, body.Error.Message, "registry corrupted", "panic values stay in the log")

	lines := logLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "registry corrupted", lines[0][logger.FieldError])
	assert.Equal(t, "/v1/engines", lines[0]["path"])
}

func TestRecoveryReraisesAbort(t *testing.T) {
	h := middleware.Recovery(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		serve(h, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	})
}

func TestRequestID(t *testing.T) {
	var seenHeader string
	var seenCtx any
	h := middleware.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seenHeader = r.Header.Get(middleware.HeaderRequestID)
		seenCtx = r.Context().Value(logger.RequestIDKey)
	}))

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	id := rr.Header().Get(middleware.HeaderRequestID)
	assert.Len(t, id, 36, "a UUID is generated")
	assert.Equal(t, id, seenHeader)
	assert.Equal(t, id, seenCtx)

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(middleware.HeaderRequestID, "caller-id")
	rr = serve(h, req)
	assert.Equal(t, "caller-id", rr.Header().Get(middleware.HeaderRequestID))
	assert.Equal(t, "caller-id", seenCtx)
}

func corsConfig(origins ...string) *middleware.CORSConfig {
	cfg := &middleware.CORSConfig{AllowedOrigins: origins}
	cfg.ApplyDefaults()
	return cfg
}

func TestCORS(t *testing.T) {
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name        string
		cfg         *middleware.CORSConfig
		method      string
		origin      string
		preflight   bool
		wantCode    int
		wantOrigin  string
		wantMethods string
		wantReached bool
	}{
		{"simple allowed", corsConfig("https://ui.example"), http.MethodGet, "https://ui.example", false,
			http.StatusOK, "https://ui.example", "", true},
		{"simple wildcard", corsConfig(), http.MethodGet, "https://any.example", false,
			http.StatusOK, "https://any.example", "", true},
		{"simple denied", corsConfig("https://ui.example"), http.MethodGet, "https://evil.example", false,
			http.StatusOK, "", "", true},
		{"no origin", corsConfig(), http.MethodGet, "", false,
			http.StatusOK, "", "", true},
		{"preflight allowed", corsConfig(), http.MethodOptions, "https://ui.example", true,
			http.StatusNoContent, "https://ui.example", "GET, OPTIONS", false},
		{"preflight denied", corsConfig("https://ui.example"), http.MethodOptions, "https://evil.example", true,
			http.StatusNoContent, "", "", false},
		{"plain options reaches router", corsConfig(), http.MethodOptions, "https://ui.example", false,
			http.StatusOK, "https://ui.example", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reached = false
			req := httptest.NewRequest(tc.method, "/v1/engines", http.NoBody)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			rr := serve(middleware.CORS(tc.cfg)(next), req)

			assert.Equal(t, tc.wantCode, rr.Code)
			assert.Equal(t, tc.wantOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tc.wantMethods, rr.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, tc.wantReached, reached)
			assert.Equal(t, "Origin", rr.Header().Get("Vary"))
		})
	}
}

func TestCORSPreflightHeaders(t *testing.T) {
	cfg := corsConfig("https://ui.example")
	cfg.AllowCredentials = true
	req := httptest.NewRequest(http.MethodOptions, "/v1/engines", http.NoBody)
	req.Header.Set("Origin", "https://ui.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rr := serve(middleware.CORS(cfg)(http.NotFoundHandler()), req)
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "600", rr.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "Accept, Content-Type, X-Request-Id", rr.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, middleware.HeaderRequestID, rr.Header().Get("Access-Control-Expose-Headers"))
}

func TestRequestLogger(t *testing.T) {
	log, buf := captureLogger()
	h := middleware.RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/engines":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{}}`))
		default:
			_, _ = w.Write([]byte("[]"))
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/engines?format=condensed", http.NoBody)
	req.Header.Set(middleware.HeaderRequestID, "req-7")
	serve(h, req)
	serve(h, httptest.NewRequest(http.MethodGet, "/v1/engines/abc", http.NoBody))
	serve(h, httptest.NewRequest(http.MethodGet, "/v1/health", http.NoBody))

	lines := logLines(t, buf)
	require.Len(t, lines, 2, "probe paths are not logged")

	assert.Equal(t, "error", lines[0]["level"])
	assert.EqualValues(t, http.StatusServiceUnavailable, lines[0][logger.FieldStatus])
	assert.Equal(t, "format=condensed", lines[0]["query"])
	assert.Equal(t, "req-7", lines[0][logger.FieldRequestID])
	assert.EqualValues(t, 12, lines[0]["bytes"])

	assert.Equal(t, "debug", lines[1]["level"])
	assert.EqualValues(t, http.StatusOK, lines[1][logger.FieldStatus], "an implicit 200 is recorded")
	assert.EqualValues(t, 2, lines[1]["bytes"])
}

type flushRecorder struct {
	*httptest.ResponseRecorder
	flushed bool
}

func (f *flushRecorder) Flush() { f.flushed = true }

func TestRequestLoggerKeepsFlusher(t *testing.T) {
	fr := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
	h := middleware.RequestLogger(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		require.NoError(t, http.NewResponseController(w).Flush())
	}))
	h.ServeHTTP(fr, httptest.NewRequest(http.MethodGet, "/v1/engines", http.NoBody))
	assert.True(t, fr.flushed)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+">")
				next.ServeHTTP(w, r)
				order = append(order, "<"+name)
			})
		}
	}
	h := middleware.Chain(mark("outer"), mark("inner"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	serve(h, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, []string{"outer>", "inner>", "handler", "<inner", "<outer"}, order)
}
