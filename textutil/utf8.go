// Package textutil carries the byte-level text helpers: in-place UTF-8
// sanitization and fixed-width hex formatting.
package textutil

// SanitizeUTF8 rewrites b in place: zero bytes, stray continuation bytes,
// truncated multibyte sequences and bytes that cannot start a sequence all
// become spaces. ASCII survives untouched. Only the lead/continuation
// structure is checked; over-long encodings, surrogates and code points
// above U+10FFFF are not detected and pass through unchanged.
func SanitizeUTF8(b []byte) {
	if len(b) == 0 {
		return
	}

	codePos := 0
	codeLen := 1

	for i := 0; i < len(b); i++ {
		c := b[i]

		// never allow NUL inside a string
		if c == 0 {
			b[i] = ' '
			c = ' '
		}

		// we thought we were inside a multibyte char but this byte is
		// not a continuation: blank the sequence started so far
		if codeLen > 1 && c>>6 != 2 {
			codePos++
			for j := 1; j < codePos; j++ {
				b[i-j] = ' '
			}
			codeLen = 1
			codePos = 0
		}

		switch {
		case c < 128:
			codeLen = 1
			codePos = 0
		case c>>3 == 30: // 11110xxx, 4-byte sequence
			codeLen = 4
			codePos = 1
		case c>>4 == 14: // 1110xxxx, 3-byte sequence
			codeLen = 3
			codePos = 1
		case c>>5 == 6: // 110xxxxx, 2-byte sequence
			codeLen = 2
			codePos = 1
		case c>>6 == 2: // continuation byte
			codePos++
			if codePos > codeLen || codeLen == 1 {
				for j := 0; j < codePos; j++ {
					b[i-j] = ' '
				}
				codeLen = 1
				codePos = 0
			} else if codePos == codeLen {
				codeLen = 1
				codePos = 0
			}
		default:
			b[i] = ' '
			codeLen = 1
			codePos = 0
		}
	}

	// blank an incomplete trailing sequence
	if codeLen > 1 && codeLen > codePos {
		codePos++
		for j := 1; j < codePos; j++ {
			b[len(b)-j] = ' '
		}
	}
}
