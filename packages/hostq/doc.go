// Package hostq serializes and rate limits work per destination host.
//
// A Registry hands out one HostState per host:port key. Each state owns a
// single-slot FIFO queue (Admit) and a token bucket limiter (Throttle) built
// on golang.org/x/time/rate. States live as long as the registry.
package hostq
