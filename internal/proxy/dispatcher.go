package proxy

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"klein/internal/metrics"
	"klein/internal/ring"
	"klein/internal/state"
)

// NoBackendBody is the diagnostic body returned when the ring is empty.
const NoBackendBody = "no backend server is up"

// TransportErrBody is the fixed body returned when the outbound exchange
// fails at the transport level.
const TransportErrBody = "An Error occurred, please fix it"

// Dispatcher proxies each inbound request to a ring-selected backend.
type Dispatcher struct {
	pool    *ring.Pool
	src     *state.Source
	client  *http.Client
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewDispatcher builds the dispatcher; timeout bounds every outbound
// exchange.
func NewDispatcher(pool *ring.Pool, src *state.Source, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		pool:    pool,
		src:     src,
		client:  &http.Client{Timeout: timeout},
		metrics: m,
		logger:  logger,
	}
}

// Pick draws a token and resolves it to a backend without proxying.
func (d *Dispatcher) Pick() (ring.Backend, bool) {
	return d.pool.Lookup(d.src.NextToken())
}

// ServeHTTP draws a token, resolves it and mirrors the chosen backend's
// response. The ring is read-locked only for the lookup; the outbound call
// runs with no lock held.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.metrics.Requests.Inc()
	d.metrics.InFlight.Inc()
	defer d.metrics.InFlight.Dec()

	token := d.src.NextToken()
	backend, ok := d.pool.Lookup(token)
	if !ok {
		d.logger.Warn("no backend available", zap.Uint64("token", token))
		d.observe("none", http.StatusInternalServerError, 0)
		http.Error(w, NoBackendBody, http.StatusInternalServerError)
		return
	}

	start := time.Now()
	status, err := d.forward(w, r, backend)
	elapsed := time.Since(start)
	if err != nil {
		d.logger.Warn("proxy request failed",
			zap.String("backend", backend.Name),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	} else {
		d.logger.Debug("proxied request",
			zap.String("backend", backend.Name),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed))
	}
	d.observe(backend.Name, status, elapsed)
}

// forward issues the outbound request and mirrors status, headers and body.
// The inbound method, path, query and headers are copied verbatim.
func (d *Dispatcher) forward(w http.ResponseWriter, r *http.Request, b ring.Backend) (int, error) {
	url := fmt.Sprintf("http://%s:%d%s", b.Host, b.Port, r.URL.RequestURI())
	out, err := http.NewRequestWithContext(r.Context(), r.Method, url, r.Body)
	if err != nil {
		http.Error(w, TransportErrBody, http.StatusInternalServerError)
		return http.StatusInternalServerError, err
	}
	out.Header = r.Header.Clone()

	resp, err := d.client.Do(out)
	if err != nil {
		// The transport surfaces no partial response on failure, so the
		// caller gets the fixed diagnostic body.
		http.Error(w, TransportErrBody, http.StatusInternalServerError)
		return http.StatusInternalServerError, err
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		return resp.StatusCode, fmt.Errorf("copying response body: %w", err)
	}
	return resp.StatusCode, nil
}

// observe records the dispatch outcome in the metrics sink.
func (d *Dispatcher) observe(backend string, status int, elapsed time.Duration) {
	d.metrics.Status.WithLabelValues(backend, strconv.Itoa(status)).Inc()
	d.metrics.Duration.WithLabelValues(backend).Observe(elapsed.Seconds())
}
