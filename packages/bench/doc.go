// Package bench fires a batch of requests through one client and reports
// latency percentiles, per-host counts and failures by kind.
//
// Requests to one host are serialized and rate limited by the client, so
// the throughput of a single-host batch is bounded by the host rate no
// matter how high the concurrency is set. Spreading a batch over several
// hosts is what raises it.
package bench
