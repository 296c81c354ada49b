package textutil

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeReplacesInvalidByte(t *testing.T) {
	b := []byte("abc\xffdef")
	SanitizeUTF8(b)
	assert.Equal(t, "abc def", string(b))
}

func TestSanitizeKeepsValidMultibyte(t *testing.T) {
	src := "héllo wörld — ok ✓"
	b := []byte(src)
	SanitizeUTF8(b)
	assert.Equal(t, src, string(b))
}

func TestSanitizeCases(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want string
	}{
		{"nul byte", []byte{'a', 0, 'b'}, "a b"},
		{"stray continuation", []byte{'a', 0x80, 'b'}, "a b"},
		{"truncated two byte seq", []byte{'a', 0xC3}, "a "},
		{"truncated three byte seq", []byte{0xE2, 0x82}, "  "},
		{"interrupted sequence", []byte{0xC3, 'x'}, " x"},
		{"plain ascii", []byte("hello"), "hello"},
		{"empty", []byte{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			SanitizeUTF8(tc.in)
			assert.Equal(t, tc.want, string(tc.in))
		})
	}
}

func TestSanitizeAlwaysYieldsValidUTF8(t *testing.T) {
	// a pile of hostile inputs must all come out valid
	inputs := [][]byte{
		{0xff, 0xfe, 0xfd},
		{0xC3, 0xA9, 0xC3}, // valid é then truncated start
		{0xF0, 0x9F, 0x98}, // truncated 4-byte sequence
		{0x80, 0x80, 0x80, 0x80},
		{'a', 0xE2, 0x82, 0xAC, 'b'}, // valid €
	}
	for _, in := range inputs {
		cp := append([]byte{}, in...)
		SanitizeUTF8(cp)
		assert.True(t, utf8.Valid(cp), "input %x came out as %x", in, cp)
	}
}

func TestHexUint64(t *testing.T) {
	assert.Equal(t, "0000000000000000", HexUint64(0))
	assert.Equal(t, "00000000000000ff", HexUint64(255))
	assert.Equal(t, "ffffffffffffffff", HexUint64(^uint64(0)))
	assert.Equal(t, "123456789abcdef0", HexUint64(0x123456789abcdef0))
}
