package engine

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// hashBlockSize is the read granularity for streaming digests. Files are
// never loaded into memory whole.
const hashBlockSize = 4096

// Digest computes the streaming xxHash-64 of the file at path. The result
// depends only on byte content, never on metadata, so identical content
// always yields an identical digest.
func Digest(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := xxhash.New()
	buf := make([]byte, hashBlockSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return h.Sum64(), nil
}
