// Package httpx holds the shared outbound HTTP client, sized for the
// push gateway: a slow or down gateway must not pile up connections.
package httpx

import (
	"net"
	"net/http"
	"time"
)

var defaultClient = &http.Client{
	Timeout: 10 * time.Second,
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		MaxIdleConns:        50,
		MaxConnsPerHost:     50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// Client returns the pooled client. Callers set per-request deadlines via
// context; the Timeout here is the hard ceiling.
func Client() *http.Client { return defaultClient }
