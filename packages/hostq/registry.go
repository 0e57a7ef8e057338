package hostq

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

const (
	// DefaultRate is the default ceiling of request starts per second per host
	DefaultRate = 50
	// DefaultBurst is the default number of requests allowed to start back to back
	DefaultBurst = 1
)

// Config configures the per-host limiters created by a Registry
type Config struct {
	Rate  float64
	Burst int
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() Config {
	return Config{
		Rate:  DefaultRate,
		Burst: DefaultBurst,
	}
}

// Registry owns one HostState per host key. Entries are created on first use
// and are never evicted, so memory grows with the number of distinct hosts
// seen over the life of the process.
type Registry struct {
	mu    sync.Mutex
	hosts map[string]*HostState
	limit rate.Limit
	burst int
}

// HostState pairs the serializing queue and the rate limiter of one host
type HostState struct {
	key     string
	limiter *rate.Limiter

	mu   sync.Mutex
	tail chan struct{}

	waiting atomic.Int64
	started atomic.Int64
}

// NewRegistry creates an empty registry
func NewRegistry(cfg Config) *Registry {
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRate
	}
	if cfg.Burst < 1 {
		cfg.Burst = DefaultBurst
	}
	return &Registry{
		hosts: make(map[string]*HostState),
		limit: rate.Limit(cfg.Rate),
		burst: cfg.Burst,
	}
}

// State returns the state for host, creating it if needed
func (r *Registry) State(host string) *HostState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.hosts[host]; ok {
		return h
	}

	// The first task must not wait on anything.
	tail := make(chan struct{})
	close(tail)

	h := &HostState{
		key:     host,
		limiter: rate.NewLimiter(r.limit, r.burst),
		tail:    tail,
	}
	r.hosts[host] = h
	return h
}

// Admit runs task once every task previously admitted for host has finished.
// Tasks for one host run one at a time in arrival order; tasks for different
// hosts do not wait on each other. Admit returns after task returns.
func (r *Registry) Admit(host string, task func()) {
	r.State(host).admit(task)
}

// Throttle delays task until host's limiter grants a token, then runs it.
// It never drops a task; the only error is ctx ending while waiting.
func (r *Registry) Throttle(ctx context.Context, host string, task func()) error {
	return r.State(host).throttle(ctx, task)
}

// SetRate changes the ceiling for every known host and for hosts created later
func (r *Registry) SetRate(perSecond float64) {
	if perSecond <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.limit = rate.Limit(perSecond)
	for _, h := range r.hosts {
		h.limiter.SetLimit(r.limit)
	}
}

// SetBurst changes the burst size for every known host and for hosts created later
func (r *Registry) SetBurst(burst int) {
	if burst < 1 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.burst = burst
	for _, h := range r.hosts {
		h.limiter.SetBurst(burst)
	}
}

// Rate returns the current per-host ceiling in requests per second
func (r *Registry) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return float64(r.limit)
}

// Hosts returns the number of hosts tracked so far
func (r *Registry) Hosts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hosts)
}

// Stats returns a snapshot for every tracked host
func (r *Registry) Stats() []Stats {
	r.mu.Lock()
	states := make([]*HostState, 0, len(r.hosts))
	for _, h := range r.hosts {
		states = append(states, h)
	}
	r.mu.Unlock()

	stats := make([]Stats, 0, len(states))
	for _, h := range states {
		stats = append(stats, h.Stats())
	}
	return stats
}

// Stats is a point-in-time view of a host's queue
type Stats struct {
	Host    string
	Waiting int64
	Started int64
}

// Key returns the host:port key of this state
func (h *HostState) Key() string {
	return h.key
}

// Stats returns the current queue counters
func (h *HostState) Stats() Stats {
	return Stats{
		Host:    h.key,
		Waiting: h.waiting.Load(),
		Started: h.started.Load(),
	}
}

func (h *HostState) admit(task func()) {
	h.mu.Lock()
	prev := h.tail
	next := make(chan struct{})
	h.tail = next
	h.mu.Unlock()

	h.waiting.Add(1)
	<-prev
	h.waiting.Add(-1)

	// Release the next task even if this one panics.
	defer close(next)

	h.started.Add(1)
	task()
}

func (h *HostState) throttle(ctx context.Context, task func()) error {
	if err := h.limiter.Wait(ctx); err != nil {
		return err
	}
	task()
	return nil
}
