// Package httpclient is the outbound HTTP client used to poll engines. It
// owns transport tuning and timeouts, and reports failures as *Error so
// callers can tell a refused connection from a 5xx.
//
//	client, err := httpclient.New(httpclient.Config{Timeout: 5 * time.Second})
//	resp, err := client.Get(ctx, "http://10.0.0.4:9076/healthcheck",
//	    http.Header{"Accept": {"application/json"}})
package httpclient
