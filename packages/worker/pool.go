// Package worker runs requests on a fixed pool of goroutines behind the
// http.Worker boundary. Failures cross the boundary as JSON text of the form
// {"statusMessage":"...","statusCode":404}, which the dispatcher turns back
// into an *http.WorkerError.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	hl "github.com/abdul-hamid-achik/hostline/packages/http"
)

// DefaultSize is the number of goroutines in a pool built with size <= 0
const DefaultSize = 4

// Executor runs a request locally. *http.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, req *hl.Request) (*hl.Response, error)
}

// Failure is an error that crosses the worker boundary as JSON text
type Failure struct {
	StatusMessage string `json:"statusMessage"`
	StatusCode    int    `json:"statusCode"`
}

func (f *Failure) Error() string {
	data, err := json.Marshal(f)
	if err != nil {
		return f.StatusMessage
	}
	return string(data)
}

type job struct {
	ctx    context.Context
	req    *hl.Request
	result chan result
}

type result struct {
	resp *hl.Response
	err  error
}

// Pool serves the httpRequest capability with a fixed set of goroutines
// reading from one job channel.
type Pool struct {
	exec   Executor
	size   int
	jobs   chan job
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Pool
type Option func(*Pool)

func WithLogger(l zerolog.Logger) Option {
	return func(p *Pool) {
		p.logger = l
	}
}

// NewPool starts size goroutines executing jobs with exec
func NewPool(exec Executor, size int, opts ...Option) *Pool {
	if size <= 0 {
		size = DefaultSize
	}

	p := &Pool{
		exec:   exec,
		size:   size,
		jobs:   make(chan job),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	return p
}

// Size returns the number of goroutines in the pool
func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) run(id int) {
	defer p.wg.Done()

	for j := range p.jobs {
		resp, err := p.exec.Execute(j.ctx, j.req)
		if err != nil {
			p.logger.Debug().Int("worker", id).Str("uri", j.req.URI).Err(err).Msg("job failed")
			err = toFailure(err)
		}
		j.result <- result{resp: resp, err: err}
	}
}

// Invoke implements http.Worker. The request runs on the pool as a local
// request; its ProxyToWorker flag is cleared on a copy.
func (p *Pool) Invoke(ctx context.Context, capability string, req *hl.Request) (*hl.Response, error) {
	if capability != hl.WorkerCapability {
		return nil, &Failure{
			StatusMessage: fmt.Sprintf("unknown capability %q", capability),
			StatusCode:    http.StatusNotImplemented,
		}
	}
	if req == nil {
		return nil, &Failure{StatusMessage: "request is nil", StatusCode: http.StatusBadRequest}
	}

	local := req.Clone()
	local.ProxyToWorker = false

	j := job{ctx: ctx, req: local, result: make(chan result, 1)}

	if err := p.submit(ctx, j); err != nil {
		return nil, err
	}

	select {
	case r := <-j.result:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) submit(ctx context.Context, j job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return &Failure{StatusMessage: "worker pool is closed", StatusCode: http.StatusServiceUnavailable}
	}

	select {
	case p.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits for running ones to finish
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

// toFailure maps a local error onto the status it is reported with
func toFailure(err error) *Failure {
	status := http.StatusInternalServerError
	switch hl.ErrorKind(err) {
	case "validation":
		status = http.StatusBadRequest
	case "auth":
		status = hl.StatusCode(err)
		if status == 0 {
			status = http.StatusUnauthorized
		}
	case "timeout":
		status = http.StatusGatewayTimeout
	case "unsupported":
		status = http.StatusNotImplemented
	case "transport":
		status = http.StatusBadGateway
	case "worker":
		if code := hl.StatusCode(err); code != 0 {
			status = code
		}
	}

	return &Failure{StatusMessage: err.Error(), StatusCode: status}
}
