package util

import (
	"net/http"
	"net/url"
)

// NewProxyFunc returns the proxy selector for outbound HTTP.
// Explicit proxies win per scheme; anything else follows HTTP(S)_PROXY and NO_PROXY.
func NewProxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		switch {
		case req.URL.Scheme == "https" && httpsProxy != "":
			return url.Parse(httpsProxy)
		case req.URL.Scheme == "http" && httpProxy != "":
			return url.Parse(httpProxy)
		default:
			return http.ProxyFromEnvironment(req)
		}
	}
}
