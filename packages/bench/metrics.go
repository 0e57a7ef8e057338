package bench

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	hl "github.com/abdul-hamid-achik/hostline/packages/http"
)

const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Metrics collects latency and outcome counts for a batch
type Metrics struct {
	mu sync.Mutex

	total   atomic.Int64
	success atomic.Int64
	failed  atomic.Int64

	// Latency histogram (in microseconds for precision)
	histogram *hdrhistogram.Histogram

	hosts       map[string]*hostMetrics
	errorKinds  map[string]int64
	statusCodes map[int]int64

	startTime time.Time
	endTime   time.Time
}

type hostMetrics struct {
	total     int64
	failed    int64
	histogram *hdrhistogram.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		histogram:   newHistogram(),
		hosts:       make(map[string]*hostMetrics),
		errorKinds:  make(map[string]int64),
		statusCodes: make(map[int]int64),
	}
}

// Histogram: 1us to 60s range, 3 significant digits
func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(minLatencyUs, maxLatencyUs, 3)
}

func (m *Metrics) Start() {
	m.startTime = time.Now()
}

func (m *Metrics) Stop() {
	m.endTime = time.Now()
}

// Record records one finished request against its host key
func (m *Metrics) Record(host string, duration time.Duration, resp *hl.Response, err error) {
	m.total.Add(1)
	if err != nil {
		m.failed.Add(1)
	} else {
		m.success.Add(1)
	}

	latencyUs := duration.Microseconds()
	if latencyUs < minLatencyUs {
		latencyUs = minLatencyUs
	}
	if latencyUs > maxLatencyUs {
		latencyUs = maxLatencyUs
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_ = m.histogram.RecordValue(latencyUs)

	hm, ok := m.hosts[host]
	if !ok {
		hm = &hostMetrics{histogram: newHistogram()}
		m.hosts[host] = hm
	}
	hm.total++
	_ = hm.histogram.RecordValue(latencyUs)

	if err != nil {
		hm.failed++
		m.errorKinds[hl.ErrorKind(err)]++
	}
	if resp != nil {
		m.statusCodes[resp.StatusCode]++
	}
}

// Summary is the final report of a batch
type Summary struct {
	Duration time.Duration
	Total    int64
	Success  int64
	Failed   int64

	RPS       float64
	ErrorRate float64

	P50    time.Duration
	P95    time.Duration
	P99    time.Duration
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	StdDev time.Duration

	// Hosts is sorted by host key
	Hosts       []HostSummary
	ErrorKinds  map[string]int64
	StatusCodes map[int]int64
}

// HostSummary holds the breakdown for one host
type HostSummary struct {
	Host   string
	Total  int64
	Failed int64
	P50    time.Duration
	P99    time.Duration
	Mean   time.Duration
}

func (m *Metrics) Summary() *Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	duration := m.endTime.Sub(m.startTime)
	if m.endTime.IsZero() {
		duration = time.Since(m.startTime)
	}

	total := m.total.Load()
	failed := m.failed.Load()

	s := &Summary{
		Duration:    duration,
		Total:       total,
		Success:     m.success.Load(),
		Failed:      failed,
		P50:         us(m.histogram.ValueAtQuantile(50)),
		P95:         us(m.histogram.ValueAtQuantile(95)),
		P99:         us(m.histogram.ValueAtQuantile(99)),
		Min:         us(m.histogram.Min()),
		Max:         us(m.histogram.Max()),
		Mean:        time.Duration(m.histogram.Mean()) * time.Microsecond,
		StdDev:      time.Duration(m.histogram.StdDev()) * time.Microsecond,
		ErrorKinds:  make(map[string]int64, len(m.errorKinds)),
		StatusCodes: make(map[int]int64, len(m.statusCodes)),
	}
	if duration.Seconds() > 0 {
		s.RPS = float64(total) / duration.Seconds()
	}
	if total > 0 {
		s.ErrorRate = float64(failed) / float64(total)
	}

	for kind, n := range m.errorKinds {
		s.ErrorKinds[kind] = n
	}
	for code, n := range m.statusCodes {
		s.StatusCodes[code] = n
	}

	for host, hm := range m.hosts {
		s.Hosts = append(s.Hosts, HostSummary{
			Host:   host,
			Total:  hm.total,
			Failed: hm.failed,
			P50:    us(hm.histogram.ValueAtQuantile(50)),
			P99:    us(hm.histogram.ValueAtQuantile(99)),
			Mean:   time.Duration(hm.histogram.Mean()) * time.Microsecond,
		})
	}
	sort.Slice(s.Hosts, func(i, j int) bool { return s.Hosts[i].Host < s.Hosts[j].Host })

	return s
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func us(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}
