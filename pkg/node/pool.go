package node

// DefaultPoolSize is the one-size-fits-all memory pool capacity in bytes.
const DefaultPoolSize = 512 * 1024

// endpointCost is the pool reservation per endpoint handle, covering its
// bookkeeping and payload buffers. Timers do not charge the pool.
const endpointCost = 4096

// memPool is the node's fixed-capacity allocation budget. The capacity is
// set at construction and never changes for the node's lifetime.
type memPool struct {
	capacity int
	used     int
}

func newMemPool(capacity int) *memPool {
	return &memPool{capacity: capacity}
}

// allocate reserves n bytes or fails with ErrPoolExhausted, leaving the
// pool unchanged.
func (p *memPool) allocate(n int) error {
	if p.used+n > p.capacity {
		return ErrPoolExhausted
	}
	p.used += n
	return nil
}

// release returns n bytes to the pool.
func (p *memPool) release(n int) {
	p.used -= n
	if p.used < 0 {
		p.used = 0
	}
}
