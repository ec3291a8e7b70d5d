package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"klein/internal/ring"
)

// Report describes the result of one liveness probe.
type Report struct {
	Alive       bool   `json:"alive"`
	Name        string `json:"name"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	StatusCode  int    `json:"status_code,omitempty"`
	StatusText  string `json:"status_text,omitempty"`
	TimeTakenMs int64  `json:"time_taken_ms"`
	Error       string `json:"error,omitempty"`
}

// BackendLister provides a read-only snapshot of the live backends.
type BackendLister interface {
	Backends() []ring.Backend
}

// Monitor probes backends on their health path with a bounded wait.
type Monitor struct {
	pool   BackendLister
	client *http.Client
	path   string
	logger *zap.Logger
}

// NewMonitor builds a monitor whose probes are bounded by timeout.
func NewMonitor(pool BackendLister, path string, timeout time.Duration, logger *zap.Logger) *Monitor {
	if path == "" {
		path = "/heartbeat"
	}
	return &Monitor{
		pool:   pool,
		client: &http.Client{Timeout: timeout},
		path:   path,
		logger: logger,
	}
}

// CheckAll snapshots the backend list and probes each member in turn.
func (m *Monitor) CheckAll(ctx context.Context) []Report {
	backends := m.pool.Backends()
	reports := make([]Report, 0, len(backends))
	for _, b := range backends {
		reports = append(reports, m.probe(ctx, b))
	}
	return reports
}

// probe issues a single HEAD request against the backend's health path.
func (m *Monitor) probe(ctx context.Context, b ring.Backend) Report {
	rep := Report{Name: b.Name, Host: b.Host, Port: b.Port}

	url := fmt.Sprintf("http://%s:%d%s", b.Host, b.Port, m.path)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}

	start := time.Now()
	resp, err := m.client.Do(req)
	rep.TimeTakenMs = time.Since(start).Milliseconds()
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	defer resp.Body.Close()

	rep.Alive = true
	rep.StatusCode = resp.StatusCode
	rep.StatusText = http.StatusText(resp.StatusCode)
	return rep
}

// Run probes all backends on a fixed interval until the context is
// cancelled, logging the ones that cannot be reached.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, rep := range m.CheckAll(ctx) {
				if !rep.Alive {
					m.logger.Warn("backend unreachable",
						zap.String("name", rep.Name),
						zap.String("error", rep.Error))
				}
			}
		}
	}
}
