package bench

import (
	"context"
	"errors"
	"time"

	hl "github.com/abdul-hamid-achik/hostline/packages/http"
)

const (
	DefaultRequests    = 100
	DefaultConcurrency = 10
)

// Executor runs one request. *http.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, req *hl.Request) (*hl.Response, error)
}

// Config describes a batch
type Config struct {
	// Requests is the number of requests to send
	Requests int
	// Concurrency caps the requests in flight at once
	Concurrency int
	// Targets are used round robin
	Targets []*hl.Request
}

// Validate checks the batch and fills defaults
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return errors.New("at least one target is required")
	}
	if c.Requests <= 0 {
		c.Requests = DefaultRequests
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Concurrency > c.Requests {
		c.Concurrency = c.Requests
	}
	return nil
}

// Runner sends a batch through an Executor
type Runner struct {
	exec    Executor
	config  Config
	metrics *Metrics
	sem     chan struct{} // semaphore for max concurrency
}

func NewRunner(exec Executor, config Config) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Runner{
		exec:    exec,
		config:  config,
		metrics: NewMetrics(),
		sem:     make(chan struct{}, config.Concurrency),
	}, nil
}

// Run sends every request and returns the summary. Stopping ctx stops
// dispatching; requests already in flight are waited for.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	r.metrics.Start()

	done := make(chan struct{}, r.config.Requests)
	dispatched := 0

	var runErr error
	for i := 0; i < r.config.Requests; i++ {
		if err := r.acquire(ctx); err != nil {
			runErr = err
			break
		}
		dispatched++

		target := r.config.Targets[i%len(r.config.Targets)].Clone()
		go func() {
			defer func() {
				r.release()
				done <- struct{}{}
			}()
			r.send(ctx, target)
		}()
	}

	for i := 0; i < dispatched; i++ {
		<-done
	}
	r.metrics.Stop()

	return r.metrics.Summary(), runErr
}

func (r *Runner) send(ctx context.Context, req *hl.Request) {
	host, err := req.HostKey()
	if err != nil {
		host = req.URI
	}

	start := time.Now()
	resp, err := r.exec.Execute(ctx, req)
	r.metrics.Record(host, time.Since(start), resp, err)
}

func (r *Runner) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) release() {
	<-r.sem
}
