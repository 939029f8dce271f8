// Package pool hands out the fixed set of airplane slots. Handles are slot
// indices; the pool owns the storage.
package pool

import (
	"fmt"
	"sync"

	"github.com/yegors/airport-sim/internal/airplane"
)

// Handle identifies a slot. It equals the slot's airplane id.
type Handle int

// Pool is a fixed-capacity slot allocator. The pool mutex guards only the
// free bookkeeping; each slot payload has its own lock.
type Pool struct {
	slots []*airplane.Shared

	mu    sync.Mutex
	free  []bool
	nFree int
}

// New builds a pool with every slot free and ids 0..capacity-1.
func New(capacity int) *Pool {
	if capacity <= 0 {
		panic(fmt.Sprintf("pool capacity must be positive, got %d", capacity))
	}
	p := &Pool{
		slots: make([]*airplane.Shared, capacity),
		free:  make([]bool, capacity),
		nFree: capacity,
	}
	for i := range p.slots {
		p.slots[i] = airplane.NewShared(i)
		p.free[i] = true
	}
	return p
}

// Acquire claims a free slot. ok is false when the pool is exhausted.
func (p *Pool) Acquire() (h Handle, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.nFree == 0 {
		return 0, false
	}
	for i, free := range p.free {
		if free {
			p.free[i] = false
			p.nFree--
			return Handle(i), true
		}
	}
	panic("pool free count out of sync with free flags")
}

// Release returns a slot. Releasing a handle the pool never issued, or one
// that is already free, is a bug in the caller and panics.
func (p *Pool) Release(h Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if int(h) < 0 || int(h) >= len(p.slots) {
		panic(fmt.Sprintf("release of foreign handle %d (capacity %d)", h, len(p.slots)))
	}
	if p.free[h] {
		panic(fmt.Sprintf("double release of handle %d", h))
	}
	p.free[h] = true
	p.nFree++
}

// Slot returns the shared airplane behind h.
func (p *Pool) Slot(h Handle) *airplane.Shared {
	if int(h) < 0 || int(h) >= len(p.slots) {
		panic(fmt.Sprintf("handle %d out of range (capacity %d)", h, len(p.slots)))
	}
	return p.slots[h]
}

// Free returns the number of free slots.
func (p *Pool) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nFree
}

func (p *Pool) Cap() int { return len(p.slots) }

// Occupied lists the handles currently acquired, in slot order.
func (p *Pool) Occupied() []Handle {
	p.mu.Lock()
	defer p.mu.Unlock()

	handles := make([]Handle, 0, len(p.slots)-p.nFree)
	for i, free := range p.free {
		if !free {
			handles = append(handles, Handle(i))
		}
	}
	return handles
}

// CopyLive returns value copies of at most max occupied airplanes. The pool
// lock is released before any slot lock is taken.
func (p *Pool) CopyLive(max int) []airplane.Airplane {
	handles := p.Occupied()
	if max >= 0 && len(handles) > max {
		handles = handles[:max]
	}
	planes := make([]airplane.Airplane, 0, len(handles))
	for _, h := range handles {
		planes = append(planes, p.slots[h].Load())
	}
	return planes
}
