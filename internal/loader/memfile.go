package loader

import (
	"errors"
	"io"
)

// memFile is an in-memory random-access file. The netCDF reader and writer
// need both ReadAt and WriteAt.
type memFile struct {
	b []byte
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("memfile: negative offset")
	}
	if off >= int64(len(m.b)) {
		return 0, io.EOF
	}
	n := copy(p, m.b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("memfile: negative offset")
	}
	end := int(off) + len(p)
	if end > len(m.b) {
		grown := make([]byte, end)
		copy(grown, m.b)
		m.b = grown
	}
	return copy(m.b[off:], p), nil
}
