// Package merge writes the destination file of one (step, dataset) pair:
// either a verbatim copy of the single qualifying source or a combined
// netCDF container assembled from individually loaded variables.
package merge

import (
	"fmt"
	"strings"

	"github.com/vk/forcinggate/internal/fsutil"
)

// Mode is the destination strategy of a dataset.
type Mode int

const (
	Passthrough Mode = iota
	Combine
)

func (m Mode) String() string {
	switch m {
	case Passthrough:
		return "passthrough"
	case Combine:
		return "combine"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Decide picks Combine when any merge or split operation is declared.
// Without one the qualifying source is copied whole, however many
// variables it holds.
func Decide(operations []string) Mode {
	for _, op := range operations {
		switch strings.ToLower(op) {
		case "merge", "split":
			return Combine
		}
	}
	return Passthrough
}

// CopySource copies src to dst unmodified. The destination keeps the
// source's compression: a zipped source lands at dst+".gz". It returns the
// path written.
func CopySource(src, dst string) (string, error) {
	dst = fsutil.Uncompressed(dst)
	if fsutil.IsCompressed(src) {
		dst = fsutil.Compressed(dst)
	}
	if err := fsutil.CopyFile(src, dst); err != nil {
		return "", fmt.Errorf("passthrough %s -> %s: %w", src, dst, err)
	}
	return dst, nil
}
