// Package http は競合ページ取得に使う外向き HTTP クライアントを組み立てます。
package http

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient は接続、TLS、全体のタイムアウトを明示したクライアントを返します。
// http.DefaultClient はタイムアウトが無制限なので、スクレイピングには使いません。
func NewHTTPClient(timeout time.Duration) *http.Client {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{Timeout: timeout, Transport: t}
}
