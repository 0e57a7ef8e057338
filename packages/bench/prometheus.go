package bench

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WritePrometheus writes s in the Prometheus text exposition format
func WritePrometheus(w io.Writer, s *Summary) error {
	var b strings.Builder

	counter(&b, "hostline_bench_requests_total", "Requests sent in the batch", s.Total)
	counter(&b, "hostline_bench_requests_success_total", "Requests that returned a response", s.Success)
	counter(&b, "hostline_bench_requests_failed_total", "Requests that failed without a usable response", s.Failed)

	fmt.Fprintf(&b, "# HELP hostline_bench_request_duration_ms Request duration in milliseconds\n")
	fmt.Fprintf(&b, "# TYPE hostline_bench_request_duration_ms summary\n")
	fmt.Fprintf(&b, "hostline_bench_request_duration_ms{quantile=\"0.5\"} %.3f\n", ms(s.P50))
	fmt.Fprintf(&b, "hostline_bench_request_duration_ms{quantile=\"0.95\"} %.3f\n", ms(s.P95))
	fmt.Fprintf(&b, "hostline_bench_request_duration_ms{quantile=\"0.99\"} %.3f\n", ms(s.P99))
	fmt.Fprintf(&b, "hostline_bench_request_duration_ms_count %d\n", s.Total)
	fmt.Fprintln(&b)

	if len(s.Hosts) > 0 {
		fmt.Fprintf(&b, "# HELP hostline_bench_host_requests_total Requests per host\n")
		fmt.Fprintf(&b, "# TYPE hostline_bench_host_requests_total counter\n")
		for _, h := range s.Hosts {
			fmt.Fprintf(&b, "hostline_bench_host_requests_total{host=%q} %d\n", h.Host, h.Total)
		}
		fmt.Fprintln(&b)

		fmt.Fprintf(&b, "# HELP hostline_bench_host_failed_total Failed requests per host\n")
		fmt.Fprintf(&b, "# TYPE hostline_bench_host_failed_total counter\n")
		for _, h := range s.Hosts {
			fmt.Fprintf(&b, "hostline_bench_host_failed_total{host=%q} %d\n", h.Host, h.Failed)
		}
		fmt.Fprintln(&b)
	}

	if len(s.StatusCodes) > 0 {
		codes := make([]int, 0, len(s.StatusCodes))
		for code := range s.StatusCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)

		fmt.Fprintf(&b, "# HELP hostline_bench_requests_by_status_total Responses by HTTP status code\n")
		fmt.Fprintf(&b, "# TYPE hostline_bench_requests_by_status_total counter\n")
		for _, code := range codes {
			fmt.Fprintf(&b, "hostline_bench_requests_by_status_total{status=\"%d\"} %d\n", code, s.StatusCodes[code])
		}
		fmt.Fprintln(&b)
	}

	if len(s.ErrorKinds) > 0 {
		kinds := make([]string, 0, len(s.ErrorKinds))
		for kind := range s.ErrorKinds {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)

		fmt.Fprintf(&b, "# HELP hostline_bench_errors_total Failures by kind\n")
		fmt.Fprintf(&b, "# TYPE hostline_bench_errors_total counter\n")
		for _, kind := range kinds {
			fmt.Fprintf(&b, "hostline_bench_errors_total{kind=%q} %d\n", kind, s.ErrorKinds[kind])
		}
		fmt.Fprintln(&b)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func counter(b *strings.Builder, name, help string, v int64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s counter\n", name)
	fmt.Fprintf(b, "%s %d\n\n", name, v)
}
