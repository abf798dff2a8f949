package fsutil

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// CompressedSuffix is the suffix of single-file gzip archives.
const CompressedSuffix = ".gz"

// IsCompressed reports whether path names the zipped form of a file.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, CompressedSuffix)
}

// Uncompressed returns the unzipped sibling name of path. Paths without the
// compressed suffix are returned unchanged.
func Uncompressed(path string) string {
	return strings.TrimSuffix(path, CompressedSuffix)
}

// Compressed returns the zipped sibling name of path.
func Compressed(path string) string {
	if IsCompressed(path) {
		return path
	}
	return path + CompressedSuffix
}

// Decompress inflates the gzip archive src into dst.
func Decompress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("open gzip stream %s: %w", src, err)
	}
	defer zr.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, zr); err != nil {
		out.Close()
		return fmt.Errorf("inflate %s: %w", src, err)
	}
	return out.Close()
}

// Compress writes src as a gzip archive at dst.
func Compress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	return writeAtomic(dst, func(w io.Writer) error {
		zw := gzip.NewWriter(w)
		if _, err := io.Copy(zw, in); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	})
}
