package http

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/hostline/packages/hostq"
)

// WorkerCapability is the capability name requests are delegated under
const WorkerCapability = "httpRequest"

// Worker executes a request somewhere else, such as another goroutine pool
// or process. Its errors may carry a JSON message of the form
// {"statusMessage": "...", "statusCode": 404}.
type Worker interface {
	Invoke(ctx context.Context, capability string, req *Request) (*Response, error)
}

// Record describes one finished call, for a Recorder
type Record struct {
	ID         string
	Host       string
	Method     string
	URI        string
	StatusCode int
	Duration   time.Duration
	ErrorKind  string
	Error      string
	Delegated  bool
	Time       time.Time
}

// Recorder receives a Record after every call
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

type Client struct {
	registry       *hostq.Registry
	pool           *Pool
	worker         Worker
	recorder       Recorder
	logger         zerolog.Logger
	defaultTimeout time.Duration
}

type ClientOption func(*Client)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		logger:         zerolog.Nop(),
		defaultTimeout: DefaultTimeoutMs * time.Millisecond,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.registry == nil {
		c.registry = hostq.NewRegistry(hostq.DefaultConfig())
	}
	if c.pool == nil {
		c.pool = NewPool()
	}

	return c
}

// WithRegistry shares a host registry between clients
func WithRegistry(r *hostq.Registry) ClientOption {
	return func(c *Client) {
		c.registry = r
	}
}

// WithPool shares connection pools between clients
func WithPool(p *Pool) ClientOption {
	return func(c *Client) {
		c.pool = p
	}
}

func WithWorker(w Worker) ClientOption {
	return func(c *Client) {
		c.worker = w
	}
}

func WithRecorder(r Recorder) ClientOption {
	return func(c *Client) {
		c.recorder = r
	}
}

func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithDefaultTimeout sets the deadline for requests that do not set one
func WithDefaultTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

// Registry returns the host registry used by the client
func (c *Client) Registry() *hostq.Registry {
	return c.registry
}

// Execute runs req and returns its normalized response. A non-2xx status
// is not an error. Errors are *ValidationError, *TransportError,
// *AuthError, *TimeoutError, *UnsupportedFeatureError or, for delegated
// requests, whatever the worker reports (*WorkerError when it carries a
// status).
func (c *Client) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, &ValidationError{Message: "request is nil"}
	}

	start := time.Now()
	method := req.Method
	if method == "" {
		method = DefaultMethod
	}
	rec := Record{
		ID:        uuid.NewString(),
		Method:    strings.ToUpper(method),
		URI:       req.URI,
		Delegated: req.ProxyToWorker,
		Time:      start,
	}

	var (
		resp *Response
		err  error
	)
	if req.ProxyToWorker {
		resp, err = c.delegate(ctx, req)
	} else {
		rec.Host, resp, err = c.executeLocal(ctx, req)
	}

	rec.Duration = time.Since(start)
	c.observe(ctx, rec, resp, err)

	return resp, err
}

func (c *Client) Get(ctx context.Context, uri string) (*Response, error) {
	return c.Execute(ctx, NewRequest("GET", uri))
}

func (c *Client) Post(ctx context.Context, uri string, body Body) (*Response, error) {
	return c.Execute(ctx, NewRequest("POST", uri).SetBody(body))
}

func (c *Client) executeLocal(ctx context.Context, req *Request) (string, *Response, error) {
	r := req.withDefaults()

	host, err := r.HostKey()
	if err != nil {
		return "", nil, err
	}

	payload, err := encodeBody(r.Body)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			return host, nil, err
		}
		return host, nil, &ValidationError{Message: "request body cannot be encoded", Err: err}
	}

	if err := checkSupported(r); err != nil {
		return host, nil, err
	}

	timeout := r.effectiveTimeout(c.defaultTimeout)
	ex := &exchange{
		method:   r.Method,
		uri:      r.URI,
		payload:  payload,
		binary:   isBinary(r.Body),
		username: r.Username,
		password: r.Password,
		reject:   r.rejectUnauthorized(),
		started:  time.Now(),
	}

	// The admitted work outlives the caller when the deadline passes, so it
	// must not inherit the caller's cancellation.
	workCtx := context.WithoutCancel(ctx)

	resp, err := withDeadline(ctx, func() (*Response, error) {
		return c.run(workCtx, host, ex, timeout)
	}, timeout)

	return host, resp, err
}

// run is the admitted part of a local request: queue, throttle, send.
func (c *Client) run(ctx context.Context, host string, ex *exchange, timeout time.Duration) (*Response, error) {
	var (
		raw *rawResponse
		err error
	)

	c.registry.Admit(host, func() {
		throttleErr := c.registry.Throttle(ctx, host, func() {
			raw, err = c.negotiate(ctx, ex, timeout)
		})
		if throttleErr != nil {
			err = throttleErr
		}
	})
	if err != nil {
		return nil, err
	}

	return normalize(raw, ex.binary), nil
}

// delegate forwards req untouched to the worker. A worker error whose text
// is a JSON object is rewritten into a *WorkerError with its message and
// status.
func (c *Client) delegate(ctx context.Context, req *Request) (*Response, error) {
	if c.worker == nil {
		return nil, &UnsupportedFeatureError{Feature: "worker delegation without a worker"}
	}

	resp, err := c.worker.Invoke(ctx, WorkerCapability, req)
	if err != nil {
		return nil, rehoist(err)
	}
	return resp, nil
}

func rehoist(err error) error {
	msg := err.Error()
	if !strings.HasPrefix(msg, "{") || !gjson.Valid(msg) {
		return err
	}

	parsed := gjson.Parse(msg)
	return &WorkerError{
		Message:    parsed.Get("statusMessage").String(),
		StatusCode: int(parsed.Get("statusCode").Int()),
		Err:        err,
	}
}

func (c *Client) observe(ctx context.Context, rec Record, resp *Response, err error) {
	if resp != nil {
		rec.StatusCode = resp.StatusCode
	}
	if err != nil {
		rec.ErrorKind = ErrorKind(err)
		rec.Error = err.Error()
		if rec.StatusCode == 0 {
			rec.StatusCode = StatusCode(err)
		}
	}

	event := c.logger.Debug()
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		event = c.logger.Warn()
	}
	event.
		Str("id", rec.ID).
		Str("host", rec.Host).
		Str("method", rec.Method).
		Str("uri", rec.URI).
		Int("status", rec.StatusCode).
		Dur("duration", rec.Duration).
		Bool("delegated", rec.Delegated).
		Str("error_kind", rec.ErrorKind).
		Err(err).
		Msg("request finished")

	if c.recorder == nil {
		return
	}
	if recErr := c.recorder.Record(context.WithoutCancel(ctx), rec); recErr != nil {
		c.logger.Warn().Err(recErr).Str("id", rec.ID).Msg("failed to record request")
	}
}
