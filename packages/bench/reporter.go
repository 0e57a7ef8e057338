package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Reporter prints batch summaries
type Reporter struct {
	writer  io.Writer
	noColor bool

	green  *color.Color
	red    *color.Color
	yellow *color.Color
	cyan   *color.Color
	bold   *color.Color
}

// ReporterOption configures the reporter
type ReporterOption func(*Reporter)

// WithWriter sets the output writer
func WithWriter(w io.Writer) ReporterOption {
	return func(r *Reporter) {
		r.writer = w
	}
}

// WithNoColor disables colored output
func WithNoColor(noColor bool) ReporterOption {
	return func(r *Reporter) {
		r.noColor = noColor
	}
}

func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{
		writer: os.Stdout,
	}

	for _, opt := range opts {
		opt(r)
	}

	color.NoColor = r.noColor
	r.green = color.New(color.FgGreen)
	r.red = color.New(color.FgRed)
	r.yellow = color.New(color.FgYellow)
	r.cyan = color.New(color.FgCyan)
	r.bold = color.New(color.Bold)

	return r
}

// Header prints the batch header
func (r *Reporter) Header(version string, config Config) {
	fmt.Fprintln(r.writer)
	r.bold.Fprintf(r.writer, "hostline bench %s\n", version)
	fmt.Fprintln(r.writer)

	targets := make([]string, 0, len(config.Targets))
	for _, t := range config.Targets {
		targets = append(targets, t.URI)
	}
	r.cyan.Fprintf(r.writer, "Targets: %s\n", strings.Join(targets, ", "))
	fmt.Fprintf(r.writer, "Requests: %d | Concurrency: %d\n", config.Requests, config.Concurrency)
	fmt.Fprintln(r.writer)
}

// Summary prints the final summary
func (r *Reporter) Summary(s *Summary) {
	r.bold.Fprintln(r.writer, "BENCH SUMMARY")
	fmt.Fprintln(r.writer, strings.Repeat("─", 40))

	fmt.Fprintf(r.writer, "Duration:   %s\n", formatDuration(s.Duration))
	fmt.Fprintf(r.writer, "Total:      ")
	r.bold.Fprintf(r.writer, "%s", formatNumber(s.Total))
	fmt.Fprintf(r.writer, " requests (%.1f req/s)\n", s.RPS)

	fmt.Fprintf(r.writer, "Success:    ")
	r.green.Fprintf(r.writer, "%s\n", formatNumber(s.Success))

	fmt.Fprintf(r.writer, "Failed:     ")
	if s.Failed > 0 {
		r.red.Fprintf(r.writer, "%s", formatNumber(s.Failed))
	} else {
		fmt.Fprintf(r.writer, "%s", formatNumber(s.Failed))
	}
	fmt.Fprintf(r.writer, " (%.1f%%)\n", s.ErrorRate*100)

	fmt.Fprintln(r.writer)
	r.bold.Fprintln(r.writer, "LATENCY (ms)")
	fmt.Fprintf(r.writer, "  p50: %-6s | p95: %-6s | p99: %-6s | max: %s\n",
		formatLatencyMs(s.P50),
		formatLatencyMs(s.P95),
		formatLatencyMs(s.P99),
		formatLatencyMs(s.Max))
	fmt.Fprintf(r.writer, "  min: %-6s | mean: %-5s | stddev: %s\n",
		formatLatencyMs(s.Min),
		formatLatencyMs(s.Mean),
		formatLatencyMs(s.StdDev))

	if len(s.Hosts) > 0 {
		fmt.Fprintln(r.writer)
		r.bold.Fprintln(r.writer, "HOSTS")
		for _, h := range s.Hosts {
			fmt.Fprintf(r.writer, "  %s: %s requests", h.Host, formatNumber(h.Total))
			if h.Failed > 0 {
				r.red.Fprintf(r.writer, " (%s failed)", formatNumber(h.Failed))
			}
			fmt.Fprintf(r.writer, " | p50: %s | p99: %s\n", formatLatency(h.P50), formatLatency(h.P99))
		}
	}

	if len(s.StatusCodes) > 0 {
		fmt.Fprintln(r.writer)
		r.bold.Fprintln(r.writer, "STATUS CODES")
		codes := make([]int, 0, len(s.StatusCodes))
		for code := range s.StatusCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			c := r.green
			if code >= 400 {
				c = r.yellow
			}
			c.Fprintf(r.writer, "  %d", code)
			fmt.Fprintf(r.writer, ": %s\n", formatNumber(s.StatusCodes[code]))
		}
	}

	if len(s.ErrorKinds) > 0 {
		fmt.Fprintln(r.writer)
		r.bold.Fprintln(r.writer, "ERRORS")
		kinds := make([]string, 0, len(s.ErrorKinds))
		for kind := range s.ErrorKinds {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			r.red.Fprintf(r.writer, "  %s", kind)
			fmt.Fprintf(r.writer, ": %s\n", formatNumber(s.ErrorKinds[kind]))
		}
	}

	fmt.Fprintln(r.writer)
}

// JSONSummary outputs the summary as JSON
func (r *Reporter) JSONSummary(s *Summary) error {
	hosts := make([]map[string]interface{}, len(s.Hosts))
	for i, h := range s.Hosts {
		hosts[i] = map[string]interface{}{
			"host":   h.Host,
			"total":  h.Total,
			"failed": h.Failed,
			"p50":    h.P50.Milliseconds(),
			"p99":    h.P99.Milliseconds(),
			"mean":   h.Mean.Milliseconds(),
		}
	}

	statusCodes := make(map[string]int64, len(s.StatusCodes))
	for code, n := range s.StatusCodes {
		statusCodes[strconv.Itoa(code)] = n
	}

	output := map[string]interface{}{
		"duration": s.Duration.String(),
		"requests": map[string]interface{}{
			"total":   s.Total,
			"success": s.Success,
			"failed":  s.Failed,
		},
		"rates": map[string]interface{}{
			"rps":       s.RPS,
			"errorRate": s.ErrorRate,
		},
		"latency": map[string]interface{}{
			"p50":    s.P50.Milliseconds(),
			"p95":    s.P95.Milliseconds(),
			"p99":    s.P99.Milliseconds(),
			"min":    s.Min.Milliseconds(),
			"max":    s.Max.Milliseconds(),
			"mean":   s.Mean.Milliseconds(),
			"stddev": s.StdDev.Milliseconds(),
		},
		"hosts":       hosts,
		"statusCodes": statusCodes,
		"errorKinds":  s.ErrorKinds,
	}

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// Error prints an error message
func (r *Reporter) Error(format string, args ...interface{}) {
	r.red.Fprintf(r.writer, "Error: "+format+"\n", args...)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	if seconds == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dm %02ds", minutes, seconds)
}

func formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dμs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatLatencyMs(d time.Duration) string {
	v := ms(d)
	if v < 1 {
		return fmt.Sprintf("%.2f", v)
	}
	if v < 10 {
		return fmt.Sprintf("%.1f", v)
	}
	return fmt.Sprintf("%.0f", v)
}

// formatNumber formats a number with commas
func formatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	if n < 1000 {
		return s
	}

	var b strings.Builder
	start := len(s) % 3
	if start == 0 {
		start = 3
	}
	b.WriteString(s[:start])
	for i := start; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
