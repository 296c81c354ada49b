// Package mempool implements the arena allocator backing the value-buffer
// writers. A pool owns a chain of byte blocks; allocations carve the current
// block front to back and nothing is freed until the whole pool is dropped.
// Pools are single-owner and not safe for concurrent use.
package mempool

import "sync"

type block struct {
	buf  []byte
	used int
}

// Pool is a chained-block arena. Reuse returns the tail of the most recent
// allocation to the current block, which is how the buffer writers reclaim
// the unused part of an over-sized scratch area.
type Pool struct {
	blocks   []block
	nextSize int
}

// New creates a pool whose first block holds byteSize bytes and which grows
// in byteSize steps.
func New(byteSize int) *Pool {
	return NewSized(byteSize, 0)
}

// NewSized creates a pool with an explicit growth step. A nonpositive
// nextSize falls back to byteSize.
func NewSized(byteSize, nextSize int) *Pool {
	if byteSize < 1 {
		byteSize = 1
	}
	if nextSize < 1 {
		nextSize = byteSize
	}
	return &Pool{
		blocks:   []block{{buf: make([]byte, byteSize)}},
		nextSize: nextSize,
	}
}

// Allocate returns an n-byte span owned by the pool. Bytes from a fresh
// block are zero; bytes given back by Reuse are handed out again as they
// were left. The span stays valid until Clear.
func (p *Pool) Allocate(n int) []byte {
	if n <= 0 {
		return nil
	}
	last := &p.blocks[len(p.blocks)-1]
	if n > len(last.buf)-last.used {
		size := p.nextSize
		for n > size {
			size += p.nextSize
		}
		p.blocks = append(p.blocks, block{buf: make([]byte, size)})
		last = &p.blocks[len(p.blocks)-1]
	}
	out := last.buf[last.used : last.used+n : last.used+n]
	last.used += n
	return out
}

// Reuse gives the last n allocated bytes back to the current block. Only the
// most recent allocation's tail may be returned.
func (p *Pool) Reuse(n int) {
	if n <= 0 {
		return
	}
	last := &p.blocks[len(p.blocks)-1]
	if n > last.used {
		n = last.used
	}
	last.used -= n
}

// AllocatedBytes reports the total capacity held by the chain.
func (p *Pool) AllocatedBytes() int {
	total := 0
	for i := range p.blocks {
		total += len(p.blocks[i].buf)
	}
	return total
}

// Clear drops every block. Spans returned by Allocate must not be used
// afterwards.
func (p *Pool) Clear() {
	p.blocks = []block{{buf: make([]byte, p.nextSize)}}
}

// scratchPool holds reusable byte slices for short-lived whole-buffer
// assembly.
var scratchPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 4096)
		return &b
	},
}

// GetScratch borrows a reusable byte slice with zero length.
func GetScratch() *[]byte {
	b := scratchPool.Get().(*[]byte)
	*b = (*b)[:0]
	return b
}

// PutScratch returns a borrowed slice. Oversized buffers are dropped so the
// pool cannot pin large allocations.
func PutScratch(b *[]byte) {
	if cap(*b) > 1<<20 {
		return
	}
	scratchPool.Put(b)
}
