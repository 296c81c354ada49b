// Package hashutil fingerprints files with 64-bit xxhash.
package hashutil

import (
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/chalkan3-sloth/gridcore/xerr"
)

// File hashes the file at path, streaming it in 1 KiB chunks.
func File(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, xerr.Newf(xerr.CodeInvalidArgument, "cannot open %q", path).WithCause(err)
	}
	defer f.Close()

	h := xxhash.New()
	buf := make([]byte, 1024)
	// hide File.WriteTo so the copy goes through buf
	if _, err := io.CopyBuffer(h, struct{ io.Reader }{f}, buf); err != nil {
		return 0, xerr.Newf(xerr.CodeInternal, "failed to hash %q", path).WithCause(err)
	}
	return h.Sum64(), nil
}
