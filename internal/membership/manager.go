package membership

import (
	"context"

	"go.uber.org/zap"

	"klein/internal/ring"
	"klein/internal/state"
)

// Manager owns membership changes to the backend pool.
type Manager struct {
	pool   *ring.Pool
	prov   Provisioner
	ports  *state.PortAllocator
	src    *state.Source
	host   string
	strict bool
	logger *zap.Logger
}

// NewManager wires the manager to the pool it mutates and the shared
// runtime state it draws ports and ids from. host is the address admitted
// backends are reached at. When strict is set, a provisioning failure
// rolls back the admission instead of committing anyway.
func NewManager(pool *ring.Pool, prov Provisioner, ports *state.PortAllocator, src *state.Source, host string, strict bool, logger *zap.Logger) *Manager {
	return &Manager{
		pool:   pool,
		prov:   prov,
		ports:  ports,
		src:    src,
		host:   host,
		strict: strict,
		logger: logger,
	}
}

// Add admits a backend under the given name. It draws a fresh random id
// (collisions with live ids are not checked; the range makes a duplicate
// acceptably rare), allocates the next port, asks the provisioner to start
// the process, then places the backend on the ring. The pool holds its
// exclusive lock across append plus rebuild, so no dispatch can observe
// the backend before its virtual nodes exist.
func (m *Manager) Add(ctx context.Context, name string) (ring.Backend, Result) {
	port := m.ports.Next()
	b := ring.Backend{
		ID:   m.src.NextID(),
		Name: name,
		Host: m.host,
		Port: port,
	}

	res := m.prov.Start(ctx, name, port)
	if res.Status != StatusOK {
		if m.strict {
			m.logger.Warn("provisioning failed, backend not admitted",
				zap.String("name", name), zap.Int("status", res.Status))
			return ring.Backend{}, res
		}
		m.logger.Warn("provisioning failed, admitting backend anyway",
			zap.String("name", name), zap.Int("status", res.Status))
	}

	m.pool.Add(b)
	m.logger.Info("backend admitted",
		zap.String("name", name), zap.Uint64("id", b.ID), zap.Int("port", port))
	return b, res
}

// Remove drops the named backend from the ring and stops its process. An
// unknown name is a no-op reported with StatusNotFound; the provisioner is
// not consulted for it.
func (m *Manager) Remove(ctx context.Context, name string) Result {
	if !m.pool.Remove(name) {
		return Result{Name: name, Status: StatusNotFound, Stderr: "no such backend"}
	}

	res := m.prov.Stop(ctx, name)
	m.logger.Info("backend removed",
		zap.String("name", name), zap.Int("status", res.Status))
	return res
}
