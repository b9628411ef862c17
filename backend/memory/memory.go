// Package memory provides an in-memory backend.Storage, grounded on the
// teacher's testhelper.FileImpl stub but made into a real byte-buffer-backed
// implementation so it can stand in for a host file in tests without
// touching the filesystem.
package memory

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/go-ext2/ext2fs/backend"
)

// Storage is a backend.Storage backed entirely by an in-memory byte slice.
type Storage struct {
	buf      []byte
	pos      int64
	readOnly bool
}

// New wraps an existing byte slice as a Storage. The slice is used directly,
// not copied; callers that need an isolated copy should clone it first.
func New(b []byte, readOnly bool) *Storage {
	return &Storage{buf: b, readOnly: readOnly}
}

// NewSize allocates a new zero-filled Storage of the given size.
func NewSize(size int64) *Storage {
	return &Storage{buf: make([]byte, size)}
}

var _ backend.Storage = (*Storage)(nil)

func (s *Storage) Stat() (fs.FileInfo, error) {
	return memStat{size: int64(len(s.buf))}, nil
}

func (s *Storage) Read(b []byte) (int, error) {
	n, err := s.ReadAt(b, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *Storage) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(s.buf)) {
		return 0, io.EOF
	}
	n := copy(p, s.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *Storage) WriteAt(p []byte, off int64) (int, error) {
	if s.readOnly {
		return 0, backend.ErrIncorrectOpenMode
	}
	end := off + int64(len(p))
	if end > int64(len(s.buf)) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	return copy(s.buf[off:], p), nil
}

func (s *Storage) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = s.pos + offset
	case io.SeekEnd:
		newPos = int64(len(s.buf)) + offset
	default:
		return 0, backend.ErrNotSuitable
	}
	if newPos < 0 {
		return 0, errors.New("negative seek position")
	}
	s.pos = newPos
	return s.pos, nil
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) Sys() (*os.File, error) {
	return nil, backend.ErrNotSuitable
}

func (s *Storage) Size() (int64, error) {
	return int64(len(s.buf)), nil
}

func (s *Storage) Writable() (backend.WritableFile, error) {
	if s.readOnly {
		return nil, backend.ErrIncorrectOpenMode
	}
	return writable{s}, nil
}

type writable struct{ *Storage }

type memStat struct {
	size int64
}

func (m memStat) Name() string       { return "memory" }
func (m memStat) Size() int64        { return m.size }
func (m memStat) Mode() fs.FileMode  { return 0o644 }
func (m memStat) ModTime() time.Time { return time.Time{} }
func (m memStat) IsDir() bool        { return false }
func (m memStat) Sys() interface{}   { return nil }
