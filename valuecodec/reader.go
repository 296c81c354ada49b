package valuecodec

import (
	"encoding/binary"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/chalkan3-sloth/gridcore/xerr"
)

// Status is the outcome of a typed read.
type Status int

const (
	// OK means the value was read.
	OK Status = iota
	// TypeMismatch means the method does not apply to the buffer's kind.
	TypeMismatch
	// EndOfStream means the value array is exhausted.
	EndOfStream
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case TypeMismatch:
		return "type-mismatch"
	case EndOfStream:
		return "end-of-stream"
	default:
		return "unknown"
	}
}

type readMode int

const (
	modeNone   readMode = iota // empty buffer, every typed read mismatches
	modePacked                 // varint or raw items inside one payload range
	modeBuffer                 // repeated length-prefixed items, one tag each
)

// Reader decodes one value buffer. It owns the buffer for its lifetime;
// string and bytes reads return subslices of it, valid until the reader is
// dropped. Readers are not safe for concurrent use.
type Reader struct {
	buf  []byte
	kind Kind
	mode readMode

	// packed state: items live in buf[pos:end]
	pos      int
	end      int
	rawWidth int // 0 for varint items, 4 or 8 for raw little-endian

	// buffer state: whether the next item's tag has already been peeked
	// and consumed, leaving pos at that item's length prefix
	nextTagOK bool

	nullWords []uint32
	nNulls    int
	nullPos   int
}

// NewReader parses the top-level structure of buf: the Kind field, the
// location of the value array and, in either order relative to it, the null
// bitmap. A nil or empty buffer yields a reader whose typed reads all report
// TypeMismatch.
func NewReader(buf []byte) (*Reader, error) {
	r := &Reader{buf: buf}
	if len(buf) == 0 {
		return r, nil
	}

	num, typ, n := protowire.ConsumeTag(buf)
	if n < 0 || num != fieldKind || typ != protowire.VarintType {
		return nil, xerr.New(xerr.CodeParseFailure, "value buffer starts with a bad tag")
	}
	pos := n
	kindVal, n := protowire.ConsumeVarint(buf[pos:])
	if n < 0 {
		return nil, xerr.New(xerr.CodeParseFailure, "value buffer missing kind")
	}
	pos += n
	r.kind = Kind(kindVal)
	if !r.kind.Valid() {
		return nil, xerr.Newf(xerr.CodeParseFailure, "bad kind %d", kindVal)
	}

	start := pos

	// the next field is either the null bitmap or the value array
	if num, ok := peekTag(buf, pos); ok && num == fieldNulls {
		next, err := r.parseNulls(pos)
		if err != nil {
			return nil, err
		}
		start = next
	} else if ok {
		// skip the value array, then look for a trailing bitmap
		next, err := skipValueArray(buf, pos, valueField(r.kind))
		if err != nil {
			return nil, err
		}
		if num, ok := peekTag(buf, next); ok && num == fieldNulls {
			if _, err := r.parseNulls(next); err != nil {
				return nil, err
			}
		}
	}

	r.setup(start)
	return r, nil
}

// Kind returns the buffer's discriminator.
func (r *Reader) Kind() Kind { return r.kind }

// NullCount returns the number of bits carried by the null bitmap.
func (r *Reader) NullCount() int { return r.nNulls }

// NullPos returns how many null bits have been consumed.
func (r *Reader) NullPos() int { return r.nullPos }

// ReadNull consumes one bit of the null bitmap. Bits past the bitmap read as
// false.
func (r *Reader) ReadNull() bool {
	ret := false
	if r.nullPos < r.nNulls {
		ret = r.nullWords[r.nullPos/32]&(1<<(uint(r.nullPos)&31)) != 0
	}
	r.nullPos++
	return ret
}

// peekTag reads the tag at pos without committing to it.
func peekTag(buf []byte, pos int) (protowire.Number, bool) {
	if pos >= len(buf) {
		return 0, false
	}
	num, _, n := protowire.ConsumeTag(buf[pos:])
	if n < 0 {
		return 0, false
	}
	return num, true
}

// skipValueArray advances past the value array that starts at pos.
func skipValueArray(buf []byte, pos int, field protowire.Number) (int, error) {
	if field == fieldString || field == fieldBytes {
		for {
			num, ok := peekTag(buf, pos)
			if !ok || num != field {
				return pos, nil
			}
			_, tagLen := protowire.ConsumeVarint(buf[pos:])
			pos += tagLen
			itemLen, n := protowire.ConsumeVarint(buf[pos:])
			if n < 0 {
				return 0, xerr.New(xerr.CodeParseFailure, "truncated item length")
			}
			pos += n + int(itemLen)
			if pos > len(buf) {
				return 0, xerr.New(xerr.CodeParseFailure, "item length past buffer end")
			}
		}
	}
	// packed: one tag, one payload
	_, tagLen := protowire.ConsumeVarint(buf[pos:])
	pos += tagLen
	payload, n := protowire.ConsumeVarint(buf[pos:])
	if n < 0 {
		// a dangling value tag with no payload varint means zero items
		return len(buf), nil
	}
	pos += n + int(payload)
	if pos > len(buf) {
		return 0, xerr.New(xerr.CodeParseFailure, "payload past buffer end")
	}
	return pos, nil
}

// parseNulls decodes the bitmap field at pos: payload length, bit count,
// then varint-encoded 32-bit words. Returns the position after the field.
func (r *Reader) parseNulls(pos int) (int, error) {
	_, tagLen := protowire.ConsumeVarint(r.buf[pos:])
	pos += tagLen
	payload, n := protowire.ConsumeVarint(r.buf[pos:])
	if n < 0 {
		return 0, xerr.New(xerr.CodeParseFailure, "truncated null bitmap")
	}
	pos += n
	end := pos + int(payload)
	if end > len(r.buf) {
		return 0, xerr.New(xerr.CodeParseFailure, "null bitmap past buffer end")
	}

	bits, n := protowire.ConsumeVarint(r.buf[pos:end])
	if n < 0 {
		return 0, xerr.New(xerr.CodeParseFailure, "null bitmap missing bit count")
	}
	pos += n
	r.nNulls = int(bits)
	nWords := (r.nNulls + 31) / 32
	r.nullWords = make([]uint32, nWords)
	for i := 0; i < nWords && pos < end; i++ {
		w, n := protowire.ConsumeVarint(r.buf[pos:end])
		if n < 0 {
			return 0, xerr.New(xerr.CodeParseFailure, "truncated null bitmap word")
		}
		r.nullWords[i] = uint32(w)
		pos += n
	}
	return end, nil
}

// setup positions the typed read state at the value array.
func (r *Reader) setup(start int) {
	field := valueField(r.kind)
	switch field {
	case fieldString, fieldBytes:
		r.mode = modeBuffer
		r.pos = start
		num, ok := peekTag(r.buf, start)
		r.nextTagOK = ok && num == field
		if r.nextTagOK {
			_, tagLen := protowire.ConsumeVarint(r.buf[start:])
			r.pos = start + tagLen
		}
	default:
		r.mode = modePacked
		switch r.kind {
		case KindDouble:
			r.rawWidth = 8
		case KindFloat:
			r.rawWidth = 4
		}
		num, ok := peekTag(r.buf, start)
		if !ok || num != field {
			return // zero readable items
		}
		_, tagLen := protowire.ConsumeVarint(r.buf[start:])
		pos := start + tagLen
		payload, n := protowire.ConsumeVarint(r.buf[pos:])
		if n < 0 {
			return
		}
		r.pos = pos + n
		r.end = r.pos + int(payload)
		if r.end > len(r.buf) {
			r.end = len(r.buf)
		}
	}
}

// readVarint consumes one packed varint item.
func (r *Reader) readVarint() (uint64, Status) {
	if r.mode != modePacked || r.rawWidth != 0 {
		return 0, TypeMismatch
	}
	if r.pos >= r.end {
		return 0, EndOfStream
	}
	v, n := protowire.ConsumeVarint(r.buf[r.pos:r.end])
	if n < 0 {
		return 0, EndOfStream
	}
	r.pos += n
	return v, OK
}

// readItem consumes one length-prefixed item, zero-copy.
func (r *Reader) readItem() ([]byte, Status) {
	if r.mode != modeBuffer {
		return nil, TypeMismatch
	}
	if !r.nextTagOK {
		return nil, EndOfStream
	}
	itemLen, n := protowire.ConsumeVarint(r.buf[r.pos:])
	if n < 0 {
		r.nextTagOK = false
		return nil, EndOfStream
	}
	r.pos += n
	end := r.pos + int(itemLen)
	if end > len(r.buf) {
		r.nextTagOK = false
		return nil, EndOfStream
	}
	item := r.buf[r.pos:end:end]
	r.pos = end

	num, ok := peekTag(r.buf, r.pos)
	r.nextTagOK = ok && num == valueField(r.kind)
	if r.nextTagOK {
		_, tagLen := protowire.ConsumeVarint(r.buf[r.pos:])
		r.pos += tagLen
	}
	return item, OK
}

// ReadString returns the next string item as a subslice of the reader's
// buffer. Applies to STRING and the string-encoded kinds (DATE, TIME,
// DATETIME, NUMERIC, INET4, INET6, MAC, GEODATA).
func (r *Reader) ReadString() ([]byte, Status) {
	if valueField(r.kind) != fieldString {
		return nil, TypeMismatch
	}
	return r.readItem()
}

// ReadBytes returns the next bytes item as a subslice of the reader's
// buffer.
func (r *Reader) ReadBytes() ([]byte, Status) {
	if r.kind != KindBytes {
		return nil, TypeMismatch
	}
	return r.readItem()
}

// ReadInt32 returns the next int32 item.
func (r *Reader) ReadInt32() (int32, Status) {
	if r.kind != KindInt32 {
		return 0, TypeMismatch
	}
	v, st := r.readVarint()
	return int32(uint32(v)), st
}

// ReadInt64 returns the next int64 item.
func (r *Reader) ReadInt64() (int64, Status) {
	if r.kind != KindInt64 {
		return 0, TypeMismatch
	}
	v, st := r.readVarint()
	return int64(v), st
}

// ReadUint32 returns the next uint32 item.
func (r *Reader) ReadUint32() (uint32, Status) {
	if r.kind != KindUint32 {
		return 0, TypeMismatch
	}
	v, st := r.readVarint()
	return uint32(v), st
}

// ReadUint64 returns the next uint64 item.
func (r *Reader) ReadUint64() (uint64, Status) {
	if r.kind != KindUint64 {
		return 0, TypeMismatch
	}
	return r.readVarint()
}

// ReadBool returns the next bool item.
func (r *Reader) ReadBool() (bool, Status) {
	if r.kind != KindBool {
		return false, TypeMismatch
	}
	v, st := r.readVarint()
	return v != 0, st
}

// readRaw consumes width raw little-endian bytes.
func (r *Reader) readRaw(width int) ([]byte, Status) {
	if r.pos+width > r.end {
		return nil, EndOfStream
	}
	out := r.buf[r.pos : r.pos+width]
	r.pos += width
	return out, OK
}

// ReadDouble returns the next float64 item.
func (r *Reader) ReadDouble() (float64, Status) {
	if r.kind != KindDouble {
		return 0, TypeMismatch
	}
	raw, st := r.readRaw(8)
	if st != OK {
		return 0, st
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(raw)), OK
}

// ReadFloat returns the next float32 item.
func (r *Reader) ReadFloat() (float32, Status) {
	if r.kind != KindFloat {
		return 0, TypeMismatch
	}
	raw, st := r.readRaw(4)
	if st != OK {
		return 0, st
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(raw)), OK
}

// Null-aware reads: each consumes the value slot and one null bit.

// ReadStringNullable reads the next string item and its null bit.
func (r *Reader) ReadStringNullable() ([]byte, bool, Status) {
	v, st := r.ReadString()
	return v, r.ReadNull(), st
}

// ReadBytesNullable reads the next bytes item and its null bit.
func (r *Reader) ReadBytesNullable() ([]byte, bool, Status) {
	v, st := r.ReadBytes()
	return v, r.ReadNull(), st
}

// ReadInt32Nullable reads the next int32 item and its null bit.
func (r *Reader) ReadInt32Nullable() (int32, bool, Status) {
	v, st := r.ReadInt32()
	return v, r.ReadNull(), st
}

// ReadInt64Nullable reads the next int64 item and its null bit.
func (r *Reader) ReadInt64Nullable() (int64, bool, Status) {
	v, st := r.ReadInt64()
	return v, r.ReadNull(), st
}

// ReadUint32Nullable reads the next uint32 item and its null bit.
func (r *Reader) ReadUint32Nullable() (uint32, bool, Status) {
	v, st := r.ReadUint32()
	return v, r.ReadNull(), st
}

// ReadUint64Nullable reads the next uint64 item and its null bit.
func (r *Reader) ReadUint64Nullable() (uint64, bool, Status) {
	v, st := r.ReadUint64()
	return v, r.ReadNull(), st
}

// ReadDoubleNullable reads the next float64 item and its null bit.
func (r *Reader) ReadDoubleNullable() (float64, bool, Status) {
	v, st := r.ReadDouble()
	return v, r.ReadNull(), st
}

// ReadFloatNullable reads the next float32 item and its null bit.
func (r *Reader) ReadFloatNullable() (float32, bool, Status) {
	v, st := r.ReadFloat()
	return v, r.ReadNull(), st
}

// ReadBoolNullable reads the next bool item and its null bit.
func (r *Reader) ReadBoolNullable() (bool, bool, Status) {
	v, st := r.ReadBool()
	return v, r.ReadNull(), st
}
