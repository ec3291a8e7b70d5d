// Package health probes every known backend over HTTP and reports
// per-backend liveness and latency. It reads a snapshot of the backend
// list and never touches the ring's virtual-node layout; a failing probe
// is recorded, not escalated, and eviction stays an administrative action.
package health
