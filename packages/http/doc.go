// Package http executes requests through a per-host pipeline.
//
// A Client runs every request through the same stages:
//   - Validation and defaulting of the Request
//   - A deadline that abandons, but does not cancel, slow work
//   - A per-host FIFO queue so one host never sees two requests at once
//   - A per-host rate limiter
//   - Transport over pooled keep-alive IPv4 connections
//   - A single digest authentication retry on 401
//   - Normalization of the raw result into a Response
//
// Requests flagged for delegation skip the pipeline and go to a Worker.
package http
