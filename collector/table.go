// Package collector implements a thread-safe rendezvous for sharded column
// blocks. Producers insert blocks keyed by (block id, column id); consumers
// block until a whole row is present, a deadline passes, or the collector
// stops.
package collector

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/chalkan3-sloth/gridcore/rtime"
	"github.com/chalkan3-sloth/gridcore/xerr"
)

// Row is the assembled set of column pointers for one block id. Missing
// columns are nil.
type Row[T any] []*T

// block is the fixed-width row being assembled for one block id.
type block[T any] struct {
	mu          sync.Mutex
	data        []*T
	lastUpdated uint64
}

func newBlock[T any](nColumns int) *block[T] {
	return &block[T]{data: make([]*T, nColumns)}
}

// setCol stores the pointer; later writes win.
func (b *block[T]) setCol(colID int, v *T) {
	b.mu.Lock()
	b.data[colID] = v
	b.lastUpdated = rtime.Milliseconds()
	b.mu.Unlock()
}

// filled counts non-nil slots. Computing on read keeps overwrites from
// desynchronizing a maintained counter.
func (b *block[T]) filled() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, p := range b.data {
		if p != nil {
			n++
		}
	}
	return n
}

func (b *block[T]) complete() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.data {
		if p == nil {
			return false
		}
	}
	return true
}

func (b *block[T]) snapshot() (Row[T], int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	row := make(Row[T], len(b.data))
	copy(row, b.data)
	n := 0
	for _, p := range row {
		if p != nil {
			n++
		}
	}
	return row, n
}

func (b *block[T]) updatedAt() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUpdated
}

func (b *block[T]) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.data {
		b.data[i] = nil
	}
	b.lastUpdated = 0
}

// Table gathers column blocks into complete rows. The column count is fixed
// at construction. The table-level mutex guards only the block map and the
// completion broadcast; each block locks its own slots, so no operation
// waits while holding another collector lock.
type Table[T any] struct {
	nColumns int

	mu       sync.Mutex
	blocks   map[uint64]*block[T]
	maxBlock uint64
	notify   chan struct{}

	stop atomic.Bool
}

// New creates a collector for rows of nColumns columns.
func New[T any](nColumns int) *Table[T] {
	if nColumns < 1 {
		nColumns = 1
	}
	return &Table[T]{
		nColumns: nColumns,
		blocks:   make(map[uint64]*block[T]),
		notify:   make(chan struct{}),
	}
}

// NColumns returns the fixed column count.
func (t *Table[T]) NColumns() int { return t.nColumns }

// Stopped reports whether Stop has been called.
func (t *Table[T]) Stopped() bool { return t.stop.Load() }

// Stop releases every waiter; subsequent Gets return whatever is present.
func (t *Table[T]) Stop() {
	t.stop.Store(true)
	t.broadcast()
}

// broadcast wakes every current waiter by rotating the notification channel.
func (t *Table[T]) broadcast() {
	t.mu.Lock()
	close(t.notify)
	t.notify = make(chan struct{})
	t.mu.Unlock()
}

// lookup returns the block for id, creating it when create is set.
func (t *Table[T]) lookup(blockID uint64, create bool) *block[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := t.blocks[blockID]
	if b == nil && create {
		b = newBlock[T](t.nColumns)
		t.blocks[blockID] = b
		if blockID > t.maxBlock {
			t.maxBlock = blockID
		}
	}
	return b
}

// Insert stores a column pointer. Later writes to the same slot win. When
// the write completes the block, every waiter is woken.
func (t *Table[T]) Insert(blockID, colID uint64, v *T) error {
	if colID >= uint64(t.nColumns) {
		return xerr.Newf(xerr.CodeInvalidArgument,
			"column %d out of bounds, table has %d columns", colID, t.nColumns)
	}
	b := t.lookup(blockID, true)
	b.setCol(int(colID), v)
	if b.complete() {
		t.broadcast()
	}
	return nil
}

// Erase resets the block's slots and counters in place; the entry is
// retained so readers after erase see a well-defined empty state.
func (t *Table[T]) Erase(blockID uint64) {
	if b := t.lookup(blockID, false); b != nil {
		b.reset()
	}
}

// Get returns the row for blockID. If the block is complete it returns
// immediately; otherwise it waits for completion, stop, or the timeout. On
// deadline or stop the current partial row is returned with its filled
// count.
func (t *Table[T]) Get(blockID uint64, timeout time.Duration) (Row[T], int) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		t.mu.Lock()
		b := t.blocks[blockID]
		ch := t.notify
		t.mu.Unlock()

		if b != nil && b.complete() {
			return b.snapshot()
		}
		if t.Stopped() {
			break
		}

		select {
		case <-ch:
		case <-deadline.C:
			if b == nil {
				b = t.lookup(blockID, false)
			}
			if b == nil {
				return make(Row[T], t.nColumns), 0
			}
			return b.snapshot()
		}
	}

	if b := t.lookup(blockID, false); b != nil {
		return b.snapshot()
	}
	return make(Row[T], t.nColumns), 0
}

// LastUpdated returns the block's last update in milliseconds since the
// process reference instant; zero for unknown blocks.
func (t *Table[T]) LastUpdated(blockID uint64) uint64 {
	if b := t.lookup(blockID, false); b != nil {
		return b.updatedAt()
	}
	return 0
}

// MissingColumns returns how many columns the block still lacks. Unknown
// blocks miss every column.
func (t *Table[T]) MissingColumns(blockID uint64) int {
	if b := t.lookup(blockID, false); b != nil {
		return t.nColumns - b.filled()
	}
	return t.nColumns
}

// MaxBlockID returns the largest block id seen so far.
func (t *Table[T]) MaxBlockID() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxBlock
}

// NBlocks returns how many block entries exist.
func (t *Table[T]) NBlocks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.blocks)
}
