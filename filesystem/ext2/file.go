package ext2

import (
	"fmt"
	"io"
)

// readBlock reads one full physical block through the backing device.
func (fs *FileSystem) readBlock(physical uint32) ([]byte, error) {
	buf := make([]byte, fs.superblock.blockSize)
	off := fs.blockOffset(physical)
	n, err := fs.backend.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return nil, &ReadFailed{Op: fmt.Sprintf("read block %d", physical), Err: err}
	}
	if n < len(buf) {
		return nil, &ReadFailed{Op: fmt.Sprintf("read block %d", physical), Err: io.ErrUnexpectedEOF}
	}
	return buf, nil
}

// readInodeBytes implements spec.md §4.F: truncates to the inode's logical
// size, substitutes zero bytes for sparse holes, and otherwise reads through
// the §4.E resolver. Grounded on the teacher's File.Read
// (filesystem/ext4/file.go) cursor/truncate structure, with extent lookup
// replaced by the block-pointer resolver.
func (fs *FileSystem) readInodeBytes(in *inode, offset int64, buf []byte) (int, error) {
	size := int64(in.size(fs.superblock))
	if offset >= size {
		return 0, nil
	}
	remaining := len(buf)
	if int64(remaining) > size-offset {
		remaining = int(size - offset)
	}

	r := newResolver(fs, in)
	blockSize := int64(fs.superblock.blockSize)
	cursor := offset
	written := 0

	for written < remaining {
		logicalBlock := uint64(cursor / blockSize)
		within := cursor % blockSize
		toCopy := int64(remaining-written)
		if toCopy > blockSize-within {
			toCopy = blockSize - within
		}

		physical, ok, err := r.logicalToPhysical(logicalBlock)
		if err != nil {
			return written, err
		}
		if !ok {
			for i := int64(0); i < toCopy; i++ {
				buf[written] = 0
				written++
			}
			cursor += toCopy
			continue
		}

		block, err := fs.readBlock(physical)
		if err != nil {
			return written, err
		}
		n := copy(buf[written:written+int(toCopy)], block[within:within+toCopy])
		written += n
		cursor += int64(n)
	}

	return written, nil
}

// File is an open handle to a regular-file or symlink inode's byte stream,
// grounded on the teacher's ext4.File (filesystem/ext4/file.go).
type File struct {
	fs     *FileSystem
	inode  *inode
	offset int64
}

var (
	_ io.Reader   = (*File)(nil)
	_ io.ReaderAt = (*File)(nil)
	_ io.Seeker   = (*File)(nil)
	_ io.Closer   = (*File)(nil)
)

func (f *File) Read(b []byte) (int, error) {
	n, err := f.ReadAt(b, f.offset)
	f.offset += int64(n)
	if err == nil && n < len(b) {
		err = io.EOF
	}
	return n, err
}

func (f *File) ReadAt(b []byte, off int64) (int, error) {
	n, err := f.fs.readInodeBytes(f.inode, off, b)
	if err != nil {
		return n, err
	}
	if n == 0 && len(b) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	size := int64(f.inode.size(f.fs.superblock))
	var newOffset int64
	switch whence {
	case io.SeekStart:
		newOffset = offset
	case io.SeekCurrent:
		newOffset = f.offset + offset
	case io.SeekEnd:
		newOffset = size + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if newOffset < 0 {
		return f.offset, fmt.Errorf("cannot seek to negative offset %d", newOffset)
	}
	f.offset = newOffset
	return f.offset, nil
}

func (f *File) Close() error {
	*f = File{}
	return nil
}

// Size returns the file's logical byte size.
func (f *File) Size() int64 {
	return int64(f.inode.size(f.fs.superblock))
}
