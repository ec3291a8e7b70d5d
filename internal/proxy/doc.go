// Package proxy dispatches inbound requests: it draws a token from the
// shared source, resolves it to a backend through the ring and mirrors the
// backend's response to the caller, reporting outcome and latency to the
// metrics sink. Arbitrarily many dispatches may run in parallel, each on
// an independent read-only view of the ring.
package proxy
