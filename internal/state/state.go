package state

import (
	"math/rand"
	"sync"
	"sync/atomic"
)

// TokenRange bounds the request tokens drawn per dispatch. It covers the
// slot space many times over, so tokens still spread over every slot.
const TokenRange = 100000

// idRange bounds generated backend ids.
const idRange = 1 << 31

// Source draws request tokens and backend ids from a single seedable
// generator shared by all dispatches. The mutex covers only the draw;
// callers never hold it across network calls.
type Source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSource creates a source seeded deterministically for tests or from
// the clock in production.
func NewSource(seed int64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// NextToken returns a request token in [0, TokenRange).
func (s *Source) NextToken() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(s.rng.Int63n(TokenRange))
}

// NextID returns a backend id in [0, 2^31). Ids are not checked against
// the live set; the range is large enough that a duplicate is treated as
// acceptably rare.
func (s *Source) NextID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(s.rng.Int63n(idRange))
}

// PortAllocator hands out local ports for newly provisioned backends. The
// counter only moves forward and ports are never reused, so a restarted
// backend always gets a fresh port.
type PortAllocator struct {
	next atomic.Int64
}

// NewPortAllocator starts the counter at base.
func NewPortAllocator(base int) *PortAllocator {
	p := &PortAllocator{}
	p.next.Store(int64(base))
	return p
}

// Next returns the next unused port. Safe for concurrent use.
func (p *PortAllocator) Next() int {
	return int(p.next.Add(1) - 1)
}
