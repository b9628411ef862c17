package backend

import (
	"io"
	"io/fs"
	"os"
)

// SubStorage is the [offset, offset+size) view of a Storage that Mount uses
// to scope a filesystem to its own byte range on a larger device. ReadAt and
// Seek are relative to offset, ReadAt stops at the end of the range, and Size
// reports the range's size; Stat, Read and Sys pass straight through to the
// underlying Storage.
type SubStorage struct {
	underlying Storage
	offset     int64
	size       int64
}

func Sub(u Storage, offset, size int64) Storage {
	return SubStorage{
		underlying: u,
		offset:     offset,
		size:       size,
	}
}

func (s SubStorage) Stat() (fs.FileInfo, error) {
	return s.underlying.Stat()
}

func (s SubStorage) Read(bytes []byte) (int, error) {
	return s.underlying.Read(bytes)
}

func (s SubStorage) Close() error {
	return s.underlying.Close()
}

func (s SubStorage) ReadAt(p []byte, off int64) (n int, err error) {
	if off >= s.size {
		return 0, io.EOF
	}
	if remaining := s.size - off; int64(len(p)) > remaining {
		n, err = s.underlying.ReadAt(p[:remaining], s.offset+off)
		if err == nil {
			err = io.EOF
		}
		return n, err
	}
	return s.underlying.ReadAt(p, s.offset+off)
}

func (s SubStorage) Seek(offset int64, whence int) (int64, error) {
	var (
		pos int64
		err error
	)

	switch whence {
	case io.SeekStart:
		pos, err = s.underlying.Seek(offset+s.offset, io.SeekStart)
	case io.SeekCurrent:
		pos, err = s.underlying.Seek(offset, io.SeekCurrent)
	case io.SeekEnd:
		pos, err = s.underlying.Seek(s.offset+s.size+offset, io.SeekStart)
	default:
		return -1, ErrNotSuitable
	}

	if err != nil {
		return -1, err
	}

	return pos - s.offset, nil
}

func (s SubStorage) Sys() (*os.File, error) {
	return s.underlying.Sys()
}

// Size returns this sub-range's own size, not the underlying device's.
func (s SubStorage) Size() (int64, error) {
	return s.size, nil
}

func (s SubStorage) Writable() (WritableFile, error) {
	uw, err := s.underlying.Writable()
	if err != nil {
		return nil, err
	}
	return subWritable{
		underlying: uw,
		offset:     s.offset,
		size:       s.size,
	}, nil
}

type subWritable struct {
	underlying WritableFile
	offset     int64
	size       int64
}

func (sw subWritable) Stat() (fs.FileInfo, error) {
	return sw.underlying.Stat()
}

func (sw subWritable) Read(b []byte) (int, error) {
	return sw.underlying.Read(b)
}

func (sw subWritable) Close() error {
	return sw.underlying.Close()
}

func (sw subWritable) ReadAt(p []byte, off int64) (n int, err error) {
	return sw.underlying.ReadAt(p, sw.offset+off)
}

func (sw subWritable) Seek(offset int64, whence int) (int64, error) {
	var (
		pos int64
		err error
	)

	switch whence {
	case io.SeekStart:
		pos, err = sw.underlying.Seek(offset+sw.offset, io.SeekStart)
	case io.SeekCurrent:
		pos, err = sw.underlying.Seek(offset, io.SeekCurrent)
	case io.SeekEnd:
		pos, err = sw.underlying.Seek(sw.offset+sw.size+offset, io.SeekStart)
	default:
		return -1, ErrNotSuitable
	}

	if err != nil {
		return -1, err
	}

	return pos - sw.offset, nil
}

func (sw subWritable) WriteAt(p []byte, off int64) (n int, err error) {
	return sw.underlying.WriteAt(p, sw.offset+off)
}
