package helpers

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

type ESOptions struct {
	Addrs    []string
	Username string
	Password string
	Timeout  time.Duration // dial and response-header timeout; 5s when zero
}

// NewESClient creates an Elasticsearch client with optional basic auth.
// Retries are off: index writes are best-effort and searches fall back to the database.
func NewESClient(opts ESOptions) (*elasticsearch.Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	cfg := elasticsearch.Config{
		Addresses:    opts.Addrs,
		Username:     opts.Username,
		Password:     opts.Password,
		DisableRetry: true,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: timeout,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		},
	}
	return elasticsearch.NewClient(cfg)
}
