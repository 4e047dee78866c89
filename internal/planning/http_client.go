package planning

import (
	"net"
	"net/http"
	"time"
)

// newHTTPClient builds the pooled HTTP client used against the planning
// API. The upstream is slow and flaky, so timeouts are generous enough for
// a full planning fetch but still bounded everywhere.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		// Connection pooling settings
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,

		// Dial settings
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		// TLS settings
		TLSHandshakeTimeout: 10 * time.Second,

		// Response settings
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second, // planning fetches proxy a slow upstream
	}
}
