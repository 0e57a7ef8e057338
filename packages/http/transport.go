package http

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMaxIdleConns is the maximum number of idle connections in each pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
	// DefaultDialTimeout bounds connection establishment
	DefaultDialTimeout = 30 * time.Second
)

// Pool holds the shared connection pools: one for plaintext, one for TLS
// with certificate verification, and one for TLS without it. The last is
// only built when a request asks for it. All dial IPv4 and keep
// connections alive.
type Pool struct {
	plain  *http.Client
	secure *http.Client

	mu       sync.Mutex
	insecure *http.Client
}

// rawResponse is what came back over the wire, before normalization
type rawResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// exchange carries everything a single send needs. It is built once per
// request and reused verbatim for the digest retry.
type exchange struct {
	method   string
	uri      string
	payload  []byte
	binary   bool
	username string
	password string
	reject   bool
	started  time.Time
}

func NewPool() *Pool {
	return &Pool{
		plain:  newPooledClient(nil),
		secure: newPooledClient(&tls.Config{MinVersion: tls.VersionTLS12}),
	}
}

func newPooledClient(tlsConfig *tls.Config) *http.Client {
	dialer := &net.Dialer{
		Timeout:   DefaultDialTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp4", addr)
		},
		TLSClientConfig:     tlsConfig,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		DisableCompression:  true,
	}

	return &http.Client{
		Transport: transport,
		// Redirects are returned to the caller like any other status.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (p *Pool) clientFor(ex *exchange) *http.Client {
	if !strings.HasPrefix(strings.ToLower(ex.uri), "https:") {
		return p.plain
	}
	if ex.reject {
		return p.secure
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.insecure == nil {
		p.insecure = newPooledClient(&tls.Config{InsecureSkipVerify: true})
	}
	return p.insecure
}

// CloseIdleConnections drops idle connections in every pool
func (p *Pool) CloseIdleConnections() {
	p.plain.CloseIdleConnections()
	p.secure.CloseIdleConnections()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.insecure != nil {
		p.insecure.CloseIdleConnections()
	}
}

// checkSupported rejects request options the transport cannot honor
func checkSupported(r *Request) error {
	if r.Headers != nil {
		return &UnsupportedFeatureError{Feature: "custom headers on this path"}
	}
	return nil
}

// send performs one round trip. Any response, whatever its status, is a
// success here; only the absence of a response is an error.
func (p *Pool) send(ctx context.Context, ex *exchange, authorization string) (*rawResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, ex.method, ex.uri, bodyReader(ex.payload))
	if err != nil {
		return nil, &TransportError{Method: ex.method, URI: ex.uri, Err: err}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if ex.binary {
		httpReq.Header.Set("Accept", "application/octet-stream")
	}
	if authorization != "" {
		httpReq.Header.Set("Authorization", authorization)
	}

	httpResp, err := p.clientFor(ex).Do(httpReq)
	if err != nil {
		return nil, &TransportError{Method: ex.method, URI: ex.uri, Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{Method: ex.method, URI: ex.uri, Err: err}
	}

	return &rawResponse{
		StatusCode: httpResp.StatusCode,
		Status:     statusText(httpResp),
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

// statusText strips the numeric code from "404 Not Found"
func statusText(resp *http.Response) string {
	text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	text = strings.TrimSpace(text)
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
