package http

import (
	"math"
	"net"
	neturl "net/url"
	"strings"
	"time"
)

const (
	// DefaultMethod is used when a request names no method
	DefaultMethod = "GET"
	// DefaultTimeoutMs is the deadline applied when a request sets none
	DefaultTimeoutMs = 60000
	// MaxTimeoutMs is the deadline used for a timeout of 0
	MaxTimeoutMs = math.MaxInt32
)

// Request describes one call. Pointer fields distinguish "not set" from
// the zero value so that defaults can be merged under caller values.
type Request struct {
	Method   string
	URI      string
	Body     Body
	Username string
	Password string
	// Headers is not supported on the local path; a non-nil map is rejected.
	Headers            map[string]string
	FullResponse       *bool
	RejectUnauthorized *bool
	// Timeout is in milliseconds. nil means DefaultTimeoutMs, 0 means unbounded.
	Timeout       *int
	ProxyToWorker bool
}

func NewRequest(method, uri string) *Request {
	return &Request{
		Method: method,
		URI:    uri,
	}
}

func (r *Request) SetBody(body Body) *Request {
	r.Body = body
	return r
}

func (r *Request) SetCredentials(username, password string) *Request {
	r.Username = username
	r.Password = password
	return r
}

func (r *Request) SetHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}

// SetTimeout sets the deadline in milliseconds; 0 disables it
func (r *Request) SetTimeout(ms int) *Request {
	r.Timeout = &ms
	return r
}

func (r *Request) SetRejectUnauthorized(reject bool) *Request {
	r.RejectUnauthorized = &reject
	return r
}

func (r *Request) SetFullResponse(full bool) *Request {
	r.FullResponse = &full
	return r
}

// ViaWorker marks the request for delegation to the client's Worker
func (r *Request) ViaWorker() *Request {
	r.ProxyToWorker = true
	return r
}

// Clone returns a shallow copy with its own header map
func (r *Request) Clone() *Request {
	c := *r
	if r.Headers != nil {
		c.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			c.Headers[k] = v
		}
	}
	return &c
}

// withDefaults returns a copy with unset fields filled in
func (r *Request) withDefaults() *Request {
	c := r.Clone()
	if c.Method == "" {
		c.Method = DefaultMethod
	}
	c.Method = strings.ToUpper(c.Method)
	if c.FullResponse == nil {
		full := false
		c.FullResponse = &full
	}
	if c.RejectUnauthorized == nil {
		reject := true
		c.RejectUnauthorized = &reject
	}
	return c
}

// HostKey returns the hostname:port the request is scheduled under.
// The port defaults to the scheme's well-known port.
func (r *Request) HostKey() (string, error) {
	u, err := neturl.Parse(r.URI)
	if err != nil {
		return "", &ValidationError{Message: "invalid request URL: " + r.URI, Err: err}
	}

	var port string
	switch u.Scheme {
	case "http":
		port = "80"
	case "https":
		port = "443"
	default:
		return "", &ValidationError{Message: "invalid request URL: " + r.URI}
	}

	if u.Hostname() == "" {
		return "", &ValidationError{Message: "invalid request URL: " + r.URI}
	}
	if p := u.Port(); p != "" {
		port = p
	}

	return net.JoinHostPort(u.Hostname(), port), nil
}

// effectiveTimeout resolves the request deadline against a client default
func (r *Request) effectiveTimeout(def time.Duration) time.Duration {
	if r.Timeout == nil {
		return def
	}
	if *r.Timeout <= 0 {
		return MaxTimeoutMs * time.Millisecond
	}
	return time.Duration(*r.Timeout) * time.Millisecond
}

func (r *Request) rejectUnauthorized() bool {
	return r.RejectUnauthorized == nil || *r.RejectUnauthorized
}
