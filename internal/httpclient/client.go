// Package httpclient provides the shared, pooled HTTP client used by the API
// layer.
//
// Callers MUST close response bodies, even on non-2xx status:
//
//	resp, err := httpclient.Default().Do(req)
//	if err != nil {
//	    return err
//	}
//	defer resp.Body.Close()
//
// The transport keeps up to 100 idle connections total and 10 per host.
// Image and video URLs in the feed all come from a handful of CDN hosts, so
// reusing connections matters more than raw dial speed.
package httpclient

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// DefaultTimeout bounds every request made through Default.
const DefaultTimeout = 30 * time.Second

var (
	sharedTransport *http.Transport
	transportOnce   sync.Once

	defaultClient *http.Client
	clientOnce    sync.Once
)

func transport() *http.Transport {
	transportOnce.Do(func() {
		sharedTransport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ResponseHeaderTimeout: DefaultTimeout,
		}
	})
	return sharedTransport
}

// Default returns the shared client with a 30-second timeout.
func Default() *http.Client {
	clientOnce.Do(func() {
		defaultClient = New(DefaultTimeout)
	})
	return defaultClient
}

// New returns a client over the shared transport with the given timeout.
// A zero timeout means no client-side deadline; use context cancellation.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: transport(),
		Timeout:   timeout,
	}
}
