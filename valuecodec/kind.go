// Package valuecodec encodes and decodes the tagged-union column value
// buffer exchanged between query workers. The format is a length-delimited
// field-tagged binary layout: field 1 carries the Kind discriminator, one
// field per kind carries the value array, and field 11 carries a packed null
// bitmap. Readers are zero-copy; writers append into a mempool arena.
package valuecodec

import "google.golang.org/protobuf/encoding/protowire"

// Kind discriminates the value shape stored in a buffer.
type Kind uint32

const (
	KindString   Kind = 2
	KindInt32    Kind = 3
	KindInt64    Kind = 4
	KindUint32   Kind = 5
	KindUint64   Kind = 6
	KindDouble   Kind = 7
	KindFloat    Kind = 8
	KindBool     Kind = 9
	KindBytes    Kind = 10
	KindDate     Kind = 12
	KindTime     Kind = 13
	KindDatetime Kind = 14
	KindNumeric  Kind = 15
	KindInet4    Kind = 16
	KindInet6    Kind = 17
	KindMac      Kind = 18
	KindGeodata  Kind = 19
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindDouble:
		return "double"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindBytes:
		return "bytes"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDatetime:
		return "datetime"
	case KindNumeric:
		return "numeric"
	case KindInet4:
		return "inet4"
	case KindInet6:
		return "inet6"
	case KindMac:
		return "mac"
	case KindGeodata:
		return "geodata"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return (k >= KindString && k <= KindBytes) || (k >= KindDate && k <= KindGeodata)
}

// Field numbers of the wire layout.
const (
	fieldKind   = 1
	fieldString = 2
	fieldInt32  = 3
	fieldInt64  = 4
	fieldUint32 = 5
	fieldUint64 = 6
	fieldDouble = 7
	fieldFloat  = 8
	fieldBool   = 9
	fieldBytes  = 10
	fieldNulls  = 11
)

// DATE and TIME travel as fixed-length string items.
const (
	DateLen = 8
	TimeLen = 6
)

// valueField maps a kind to the field number of its value array. Textual and
// address-like kinds share the string field; raw blobs share the bytes
// field.
func valueField(k Kind) protowire.Number {
	switch k {
	case KindInt32:
		return fieldInt32
	case KindInt64:
		return fieldInt64
	case KindUint32:
		return fieldUint32
	case KindUint64:
		return fieldUint64
	case KindDouble:
		return fieldDouble
	case KindFloat:
		return fieldFloat
	case KindBool:
		return fieldBool
	case KindBytes:
		return fieldBytes
	default:
		return fieldString
	}
}

// tagOf builds the single-byte wire tag for the field numbers used here.
func tagOf(num protowire.Number) byte {
	return byte(uint64(num)<<3 | uint64(protowire.BytesType))
}
