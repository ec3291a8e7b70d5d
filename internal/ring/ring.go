package ring

import (
	"sort"
	"sync"
)

// TotalSlots is the size of the circular slot space the ring is built over.
const TotalSlots = 512

// Backend represents a routable backend server instance.
type Backend struct {
	ID   uint64
	Name string
	Host string
	Port int
}

// virtualNode is one placement of a backend at one slot.
type virtualNode struct {
	slot    int
	backend *Backend
}

// Pool maintains the consistent hash ring over the live backends.
// Lookups take a shared read lock; membership changes hold the write lock
// across the mutation plus the full rebuild, so readers never observe a
// partially built ring or a backend without its virtual nodes.
type Pool struct {
	mu       sync.RWMutex
	backends []*Backend
	slots    map[int]*virtualNode
}

// hashToken maps a request token onto the slot space.
func hashToken(token uint64) int {
	return int((token + 2*token + 17) % TotalSlots)
}

// hashVirtual maps a backend id plus a disambiguation index onto the slot
// space. Independent from hashToken; both are cheap arithmetic mixers, not
// cryptographic hashes.
func hashVirtual(id uint64, index int) int {
	i := uint64(index)
	return int((id + i + 2*i + 25) % TotalSlots)
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{slots: make(map[int]*virtualNode)}
}

// Reset replaces the entire membership and rebuilds the ring. Used at
// startup to seed the pool from configuration.
func (p *Pool) Reset(backends []Backend) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.backends = make([]*Backend, 0, len(backends))
	for i := range backends {
		b := backends[i]
		p.backends = append(p.backends, &b)
	}
	p.rebuild()
}

// Add admits a backend and rebuilds the ring.
func (p *Pool) Add(b Backend) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.backends = append(p.backends, &b)
	p.rebuild()
}

// Remove drops the backend with the given name and rebuilds the ring.
// Removing an unknown name is a no-op and returns false.
func (p *Pool) Remove(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, b := range p.backends {
		if b.Name == name {
			p.backends = append(p.backends[:i], p.backends[i+1:]...)
			p.rebuild()
			return true
		}
	}
	return false
}

// Lookup returns the backend owning the given token. The token's own slot
// is tried first; on a miss the probe walks forward through the slot space,
// wrapping around, until it hits an occupied slot. Returns false only when
// the ring is empty. Lookup never mutates the ring and may run concurrently
// with any number of other lookups.
func (p *Pool) Lookup(token uint64) (Backend, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.slots) == 0 {
		return Backend{}, false
	}

	slot := hashToken(token)
	for i := 0; i < TotalSlots; i++ {
		if vn, ok := p.slots[(slot+i)%TotalSlots]; ok {
			return *vn.backend, true
		}
	}
	return Backend{}, false
}

// Backends returns a snapshot copy of the live backend list.
func (p *Pool) Backends() []Backend {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Backend, 0, len(p.backends))
	for _, b := range p.backends {
		out = append(out, *b)
	}
	return out
}

// Len returns the number of live backends.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.backends)
}

// VirtualNodes returns the occupied slots in ascending order, for
// inspection and debugging.
func (p *Pool) VirtualNodes() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	slots := make([]int, 0, len(p.slots))
	for s := range p.slots {
		slots = append(slots, s)
	}
	sort.Ints(slots)
	return slots
}

// rebuild recomputes every virtual node placement from scratch. The caller
// must hold the write lock. Each backend gets TotalSlots/len(backends)
// placements; a colliding placement probes forward to the next free slot,
// and once the ring is full the remaining placements are dropped.
func (p *Pool) rebuild() {
	p.slots = make(map[int]*virtualNode, TotalSlots)
	if len(p.backends) == 0 {
		return
	}

	perBackend := TotalSlots / len(p.backends)
	for _, b := range p.backends {
		for i := 0; i < perBackend; i++ {
			slot, ok := p.place(hashVirtual(b.ID, i))
			if !ok {
				return
			}
			p.slots[slot] = &virtualNode{slot: slot, backend: b}
		}
	}
}

// place probes forward from the candidate slot until a free slot is found.
// Returns false when every slot is occupied.
func (p *Pool) place(slot int) (int, bool) {
	for i := 0; i < TotalSlots; i++ {
		s := (slot + i) % TotalSlots
		if _, taken := p.slots[s]; !taken {
			return s, true
		}
	}
	return 0, false
}
