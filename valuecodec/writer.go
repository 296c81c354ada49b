package valuecodec

import (
	"encoding/binary"
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/chalkan3-sloth/gridcore/mempool"
	"github.com/chalkan3-sloth/gridcore/xerr"
)

// Part is one append-only byte span of a writer. The wire bytes of a part
// are buf[start : start+used]; buffer-shaped items grow start downwards when
// the tag and length prefix are patched in front of the data.
type Part struct {
	buf   []byte
	start int
	used  int
}

// Bytes returns the part's emitted span.
func (p *Part) Bytes() []byte {
	return p.buf[p.start : p.start+p.used]
}

// PartChain is a linked list of part vectors. Concatenating every part in
// traversal order yields the final buffer.
type PartChain struct {
	parts []Part
	n     int
	next  *PartChain
}

// Next returns the following chain node.
func (c *PartChain) Next() *PartChain { return c.next }

// Parts returns the used parts of this node.
func (c *PartChain) Parts() []Part { return c.parts[:c.n] }

const (
	chainNodeCap  = 8
	headerPartCap = 16
)

type writerShape int

const (
	shapePacked writerShape = iota
	shapeBuffer
	shapeFixlen
)

// ErrWriterKind is returned when a typed write does not match the writer's
// kind.
var ErrWriterKind = xerr.New(xerr.CodeInvalidArgument, "write does not match writer kind")

// FillFunc receives a scratch area of the requested maximum size and returns
// how many bytes it actually used; the writer reclaims the tail.
type FillFunc func(dst []byte) int

// Writer assembles one value buffer inside a private mempool arena. Writers
// are single-owner: sharing one across goroutines is an error.
type Writer struct {
	kind  Kind
	pool  *mempool.Pool
	shape writerShape
	root  PartChain
	nulls PartChain

	// packed state
	maxItem      int // reserved bytes per item
	rawWidth     int // 0 for varint items
	payload      int
	payloadStart int // offset of the running payload varint in the header part
	curChain     *PartChain
	curPart      *Part
	freeBytes    int

	// fixlen state
	fixLen int

	// buffer state
	itemChain *PartChain

	// null bitmap state
	nullWords  []uint32
	lastNull   int
	nullsDirty bool
}

// NewWriter creates a writer for the given kind, sizing its arena for
// estimatedItems values.
func NewWriter(kind Kind, estimatedItems int) (*Writer, error) {
	if !kind.Valid() {
		return nil, xerr.Newf(xerr.CodeInvalidArgument, "bad kind %d", kind)
	}
	if estimatedItems < 1 {
		estimatedItems = 1
	}
	w := &Writer{kind: kind}
	switch kind {
	case KindInt32, KindUint32:
		w.initPacked(estimatedItems, 5, 0)
	case KindInt64, KindUint64:
		w.initPacked(estimatedItems, 10, 0)
	case KindBool:
		w.initPacked(estimatedItems, 2, 0)
	case KindDouble:
		w.initPacked(estimatedItems, 8, 8)
	case KindFloat:
		w.initPacked(estimatedItems, 4, 4)
	case KindDate:
		w.initFixlen(estimatedItems, DateLen)
	case KindTime:
		w.initFixlen(estimatedItems, TimeLen)
	default:
		w.initBuffer(estimatedItems)
	}
	return w, nil
}

// Kind returns the writer's discriminator.
func (w *Writer) Kind() Kind { return w.kind }

// Parts returns the head of the part chain; the null bitmap node is always
// the chain's tail.
func (w *Writer) Parts() *PartChain {
	w.finalizeNulls()
	return &w.root
}

// writeKindHeader fills a header part with the kind field and, when withTag
// is set, the value-array tag plus a running zero payload length.
func (w *Writer) writeKindHeader(p *Part, withTag bool) {
	buf := p.buf
	n := 0
	buf[n] = byte(fieldKind<<3) | byte(protowire.VarintType)
	n++
	n += putUvarint(buf[n:], uint64(w.kind))
	if withTag {
		buf[n] = tagOf(valueField(w.kind))
		n++
		w.payloadStart = n
		n += putUvarint(buf[n:], 0)
	}
	p.used = n
}

func (w *Writer) newPart(chain *PartChain, size int) *Part {
	p := &chain.parts[chain.n]
	chain.n++
	p.buf = w.pool.Allocate(size)
	p.start = 0
	p.used = 0
	return p
}

// linkChain inserts a fresh node after cur, preserving traversal order.
func (w *Writer) linkChain(cur *PartChain, partCap int) *PartChain {
	node := &PartChain{parts: make([]Part, partCap)}
	node.next = cur.next
	cur.next = node
	return node
}

func (w *Writer) initPacked(estimatedItems, maxItem, rawWidth int) {
	w.shape = shapePacked
	w.maxItem = maxItem
	w.rawWidth = rawWidth
	w.pool = mempool.New((maxItem + 2) * estimatedItems)
	w.root.parts = make([]Part, chainNodeCap)
	w.root.next = &w.nulls
	w.curChain = &w.root

	header := w.newPart(&w.root, headerPartCap)
	w.writeKindHeader(header, true)

	w.curPart = w.newPart(&w.root, maxItem*estimatedItems)
	w.freeBytes = len(w.curPart.buf)
}

func (w *Writer) initFixlen(estimatedItems, fixLen int) {
	w.shape = shapeFixlen
	w.fixLen = fixLen
	w.pool = mempool.New((fixLen + 16) * estimatedItems)
	w.root.parts = make([]Part, chainNodeCap)
	w.root.next = &w.nulls
	w.curChain = &w.root

	header := w.newPart(&w.root, headerPartCap)
	w.writeKindHeader(header, false)

	w.curPart = w.newPart(&w.root, (fixLen+8)*estimatedItems)
	w.freeBytes = len(w.curPart.buf)
}

func (w *Writer) initBuffer(estimatedItems int) {
	w.shape = shapeBuffer
	w.pool = mempool.New(128 * estimatedItems)
	w.root.parts = make([]Part, estimatedItems+1)
	w.root.next = &w.nulls
	w.itemChain = &w.root

	header := w.newPart(&w.root, headerPartCap)
	w.writeKindHeader(header, false)
}

// growWriteArea appends a part as large as the current one, opening a new
// chain node when the current vector is full.
func (w *Writer) growWriteArea() {
	lastAlloc := len(w.curPart.buf)
	if w.curChain.n == len(w.curChain.parts) {
		w.curChain = w.linkChain(w.curChain, chainNodeCap)
	}
	w.curPart = w.newPart(w.curChain, lastAlloc)
	w.freeBytes = lastAlloc
}

// updatePayload rewrites the running payload length in the header part.
func (w *Writer) updatePayload(written int) {
	w.payload += written
	w.curPart.used += written
	w.freeBytes -= written
	header := &w.root.parts[0]
	n := putUvarint(header.buf[w.payloadStart:], uint64(w.payload))
	header.used = w.payloadStart + n
}

func (w *Writer) appendVarint(v uint64) {
	if w.freeBytes < w.maxItem {
		w.growWriteArea()
	}
	n := putUvarint(w.curPart.buf[w.curPart.used:], v)
	w.updatePayload(n)
}

func (w *Writer) appendRaw(le []byte) {
	if w.freeBytes < len(le) {
		w.growWriteArea()
	}
	copy(w.curPart.buf[w.curPart.used:], le)
	w.updatePayload(len(le))
}

// WriteInt32 appends one int32 to an INT32 writer.
func (w *Writer) WriteInt32(v int32) error {
	if w.kind != KindInt32 {
		return ErrWriterKind
	}
	w.appendVarint(uint64(uint32(v)))
	return nil
}

// WriteInt64 appends one int64 to an INT64 writer.
func (w *Writer) WriteInt64(v int64) error {
	if w.kind != KindInt64 {
		return ErrWriterKind
	}
	w.appendVarint(uint64(v))
	return nil
}

// WriteUint32 appends one uint32 to a UINT32 writer.
func (w *Writer) WriteUint32(v uint32) error {
	if w.kind != KindUint32 {
		return ErrWriterKind
	}
	w.appendVarint(uint64(v))
	return nil
}

// WriteUint64 appends one uint64 to a UINT64 writer.
func (w *Writer) WriteUint64(v uint64) error {
	if w.kind != KindUint64 {
		return ErrWriterKind
	}
	w.appendVarint(v)
	return nil
}

// WriteBool appends one bool to a BOOL writer.
func (w *Writer) WriteBool(v bool) error {
	if w.kind != KindBool {
		return ErrWriterKind
	}
	var b uint64
	if v {
		b = 1
	}
	w.appendVarint(b)
	return nil
}

// WriteDouble appends one float64 to a DOUBLE writer.
func (w *Writer) WriteDouble(v float64) error {
	if w.kind != KindDouble {
		return ErrWriterKind
	}
	var le [8]byte
	putFloat64(le[:], v)
	w.appendRaw(le[:])
	return nil
}

// WriteFloat appends one float32 to a FLOAT writer.
func (w *Writer) WriteFloat(v float32) error {
	if w.kind != KindFloat {
		return ErrWriterKind
	}
	var le [4]byte
	putFloat32(le[:], v)
	w.appendRaw(le[:])
	return nil
}

// writeBufferItem gives fill a desired-byte scratch slot inside a fresh
// part, reclaims the unused tail through the mempool, then patches the tag
// and length prefix immediately in front of the data.
func (w *Writer) writeBufferItem(desired int, fill FillFunc) {
	if w.itemChain.n == len(w.itemChain.parts) {
		w.itemChain = w.linkChain(w.itemChain, len(w.itemChain.parts))
	}
	p := w.newPart(w.itemChain, headerPartCap+desired)

	data := p.buf[headerPartCap : headerPartCap+desired]
	used := fill(data)
	if used < 0 {
		used = 0
	}
	if used > desired {
		used = desired
	}
	w.pool.Reuse(desired - used)

	var lenPrefix [5]byte
	m := putUvarint(lenPrefix[:], uint64(used))
	start := headerPartCap - m - 1
	p.buf[start] = tagOf(valueField(w.kind))
	copy(p.buf[start+1:headerPartCap], lenPrefix[:m])
	p.start = start
	p.used = 1 + m + used
}

// WriteString appends one string item to a STRING-family writer (STRING,
// DATETIME, NUMERIC, INET4, INET6, MAC, GEODATA).
func (w *Writer) WriteString(desired int, fill FillFunc) error {
	if w.shape != shapeBuffer || w.kind == KindBytes {
		return ErrWriterKind
	}
	w.writeBufferItem(desired, fill)
	return nil
}

// WriteBytes appends one bytes item to a BYTES writer.
func (w *Writer) WriteBytes(desired int, fill FillFunc) error {
	if w.kind != KindBytes {
		return ErrWriterKind
	}
	w.writeBufferItem(desired, fill)
	return nil
}

// WriteFixed appends one fixed-length item to a DATE or TIME writer. fill
// receives exactly the kind's fixed width and returns the bytes used.
func (w *Writer) WriteFixed(fill FillFunc) error {
	if w.shape != shapeFixlen {
		return ErrWriterKind
	}
	if w.freeBytes < w.fixLen+2 {
		w.growWriteArea()
	}
	buf := w.curPart.buf[w.curPart.used:]
	buf[0] = tagOf(valueField(w.kind))
	used := fill(buf[2 : 2+w.fixLen])
	if used < 0 {
		used = 0
	}
	if used > w.fixLen {
		used = w.fixLen
	}
	buf[1] = byte(used)
	w.curPart.used += 2 + used
	w.freeBytes -= 2 + used
	return nil
}

// SetNull marks logical slot pos as null, growing the bitmap as needed.
func (w *Writer) SetNull(pos int) {
	if pos < 0 {
		return
	}
	word := pos / 32
	for word >= len(w.nullWords) {
		w.nullWords = append(w.nullWords, 0)
	}
	w.nullWords[word] |= 1 << (uint(pos) & 31)
	if pos >= w.lastNull {
		w.lastNull = pos + 1
	}
	w.nullsDirty = true
}

// finalizeNulls materialises the bitmap field into the tail chain: tag,
// payload length, bit count, then one varint per 32-bit word.
func (w *Writer) finalizeNulls() {
	if !w.nullsDirty {
		return
	}
	w.nullsDirty = false

	nWords := (w.lastNull + 31) / 32
	payload := uvarintLen(uint64(w.lastNull))
	for i := 0; i < nWords; i++ {
		payload += uvarintLen(uint64(w.nullWords[i]))
	}

	size := 1 + uvarintLen(uint64(payload)) + payload
	if w.nulls.parts == nil {
		w.nulls.parts = make([]Part, 1)
	}
	w.nulls.n = 1
	p := &w.nulls.parts[0]
	p.buf = w.pool.Allocate(size)
	p.start = 0

	n := 0
	p.buf[n] = tagOf(fieldNulls)
	n++
	n += putUvarint(p.buf[n:], uint64(payload))
	n += putUvarint(p.buf[n:], uint64(w.lastNull))
	for i := 0; i < nWords; i++ {
		n += putUvarint(p.buf[n:], uint64(w.nullWords[i]))
	}
	p.used = n
}

// Len returns the emitted byte length.
func (w *Writer) Len() int {
	w.finalizeNulls()
	total := 0
	for c := &w.root; c != nil; c = c.next {
		for i := 0; i < c.n; i++ {
			total += c.parts[i].used
		}
	}
	return total
}

// Bytes concatenates the part chain into one buffer.
func (w *Writer) Bytes() []byte {
	out := make([]byte, 0, w.Len())
	for c := &w.root; c != nil; c = c.next {
		for i := 0; i < c.n; i++ {
			out = append(out, c.parts[i].Bytes()...)
		}
	}
	return out
}

// WriteTo emits the part chain to wr.
func (w *Writer) WriteTo(wr io.Writer) (int64, error) {
	w.finalizeNulls()
	var total int64
	for c := &w.root; c != nil; c = c.next {
		for i := 0; i < c.n; i++ {
			n, err := wr.Write(c.parts[i].Bytes())
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// varint helpers over protowire, kept local so part patching can reason
// about exact byte counts.

func putUvarint(dst []byte, v uint64) int {
	n := 0
	for v >= 0x80 {
		dst[n] = byte(v) | 0x80
		v >>= 7
		n++
	}
	dst[n] = byte(v)
	return n + 1
}

func uvarintLen(v uint64) int {
	return int(protowire.SizeVarint(v))
}

func putFloat64(dst []byte, v float64) {
	binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
}

func putFloat32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
}
