package gateway

import (
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// NewHTTPClient builds the client used for NSE calls.
//
// Settings:
//   - Proxy: honours HTTP_PROXY/HTTPS_PROXY.
//   - Dial and TLS handshake timeouts shorter than the overall timeout.
//   - Cookie jar: NSE only serves its JSON API to sessions that first loaded the homepage.
//   - Client.Timeout: whole-request timeout supplied by the caller.
func NewHTTPClient(timeout time.Duration) *http.Client {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	jar, _ := cookiejar.New(nil) // only fails on a non-nil options error
	return &http.Client{Timeout: timeout, Transport: t, Jar: jar}
}
