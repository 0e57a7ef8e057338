// Package cmd implements the hostline CLI commands using Cobra.
//
// Available commands:
//   - request: Send one request through the host queue
//   - bench: Send a batch of requests and report latency per host
//   - history: Show requests recorded in the SQLite journal
//   - init: Write a hostline.yaml with default settings
//   - completion: Generate shell completion scripts
//   - version: Show hostline version information
//
// Every command reads hostline.yaml (or --config) for the per-host rate
// ceiling, default timeout, worker pool size, journal location and logging.
package cmd
