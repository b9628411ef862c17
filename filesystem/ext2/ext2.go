// Package ext2 implements a read-only view of the classic second extended
// filesystem. Grounded throughout on the teacher's filesystem/ext4 package
// (github.com/diskfs/go-diskfs), generalized from its extent-tree/journal-
// aware code to the simpler classic block-pointer layout ext2 uses.
package ext2

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/go-ext2/ext2fs/backend"
	"github.com/go-ext2/ext2fs/filesystem"
)

const rootInodeNumber uint32 = 2

// FileSystem is a mounted, read-only ext2 filesystem, grounded on the
// teacher's ext4.FileSystem (filesystem/ext4/ext4.go). backend is always a
// backend.Sub view scoped to this filesystem's byte range on the device, so
// every read inside this package is already relative to that range.
type FileSystem struct {
	backend          backend.Storage
	superblock       *superblock
	groupDescriptors []groupDescriptor
}

var _ filesystem.FileSystem = (*FileSystem)(nil)

// Mount reads and validates a classic ext2 filesystem starting at byte
// offset start within device, spanning size bytes (0 means "to the end of
// the device"), implementing spec.md §4.B's full validation sequence. The
// device is accessed exclusively through a backend.Sub view of [start,
// start+size) — the same sub-range capability the teacher's backend package
// offers an embedded-image reader — so a caller mounting a filesystem that
// begins partway into a partitioned disk never has the rest of the device
// in reach.
func Mount(device backend.Storage, start, size int64) (*FileSystem, error) {
	deviceSize, err := device.Size()
	if err != nil {
		return nil, &MountError{Op: "stat", Err: err}
	}
	if size <= 0 {
		size = deviceSize - start
	}
	if size < superblockOffset+superblockSize {
		return nil, &MountError{Op: "stat", Err: ErrImageTooSmall}
	}

	view := backend.Sub(device, start, size)

	sbBytes := make([]byte, superblockSize)
	n, err := view.ReadAt(sbBytes, superblockOffset)
	if err != nil {
		return nil, &MountError{Op: "read superblock", Err: &ReadFailed{Op: "read superblock", Err: err}}
	}
	if n != superblockSize {
		return nil, &MountError{Op: "read superblock", Err: &ReadFailed{Op: "read superblock", Err: io.ErrUnexpectedEOF}}
	}

	sb, err := superblockFromBytes(sbBytes)
	if err != nil {
		return nil, &MountError{Op: "decode superblock", Err: err}
	}

	fsBytes := int64(sb.blockCount) * int64(sb.blockSize)
	if fsBytes > size {
		return nil, &MountError{Op: "validate size", Err: ErrImageShorterThanFS}
	}

	gdtStart := int64(bgdtStartBlock(sb.blockSize)) * int64(sb.blockSize)
	gdtSize := int64(sb.groupCount) * groupDescriptorSize
	gdtBytes := make([]byte, gdtSize)
	n, err = view.ReadAt(gdtBytes, gdtStart)
	if err != nil {
		return nil, &MountError{Op: "read group descriptor table", Err: &ReadFailed{Op: "read group descriptor table", Err: err}}
	}
	if int64(n) != gdtSize {
		return nil, &MountError{Op: "read group descriptor table", Err: &ReadFailed{Op: "read group descriptor table", Err: io.ErrUnexpectedEOF}}
	}

	gdt, err := groupDescriptorsFromBytes(gdtBytes, sb.groupCount, sb.blockCount)
	if err != nil {
		return nil, &MountError{Op: "decode group descriptor table", Err: err}
	}

	fs := &FileSystem{
		backend:          view,
		superblock:       sb,
		groupDescriptors: gdt,
	}

	root, err := fs.readInode(rootInodeNumber)
	if err != nil {
		return nil, &MountError{Op: "read root inode", Err: ErrCannotReadRootInode}
	}
	if !root.isDirectory() {
		return nil, &MountError{Op: "validate root inode", Err: ErrRootNotDirectory}
	}

	return fs, nil
}

// readInode reads and decodes a single inode by its 1-based inode number,
// per spec.md §4.D.
func (fs *FileSystem) readInode(inodeNumber uint32) (*inode, error) {
	sb := fs.superblock
	if inodeNumber == 0 || inodeNumber > sb.inodeCount {
		return nil, ErrInodeOutOfRange
	}

	group := (inodeNumber - 1) / sb.inodesPerGroup
	if int(group) >= len(fs.groupDescriptors) {
		return nil, ErrInodeOutOfRange
	}
	indexInGroup := (inodeNumber - 1) % sb.inodesPerGroup

	gd := fs.groupDescriptors[group]
	tableOffset := int64(gd.inodeTable) * int64(sb.blockSize)
	offset := tableOffset + int64(indexInGroup)*int64(sb.inodeSize)

	raw := make([]byte, sb.inodeSize)
	n, err := fs.backend.ReadAt(raw, offset)
	if err != nil {
		return nil, &ReadFailed{Op: fmt.Sprintf("read inode %d", inodeNumber), Err: err}
	}
	if n != int(sb.inodeSize) {
		return nil, &ReadFailed{Op: fmt.Sprintf("read inode %d", inodeNumber), Err: io.ErrUnexpectedEOF}
	}

	return inodeFromBytes(raw, inodeNumber)
}

// blockOffset converts a physical block number into an absolute byte offset
// relative to fs.backend's sub-range view.
func (fs *FileSystem) blockOffset(physical uint32) int64 {
	return int64(physical) * int64(fs.superblock.blockSize)
}

// Root returns the root directory's inode number.
func (fs *FileSystem) Root() uint32 {
	return rootInodeNumber
}

// VolumeUUID returns the filesystem's volume UUID, the zero UUID if none
// was set.
func (fs *FileSystem) VolumeUUID() uuid.UUID {
	return fs.superblock.volumeUUID
}

// Label returns the filesystem's volume label.
func (fs *FileSystem) Label() string {
	return fs.superblock.volumeLabel
}

// SetLabel is unsupported: this core never writes to the backing device.
func (fs *FileSystem) SetLabel(label string) error {
	return filesystem.ErrReadonlyFilesystem
}

// Type returns the type code for the filesystem. Always TypeExt2.
func (fs *FileSystem) Type() filesystem.Type {
	return filesystem.TypeExt2
}

func (fs *FileSystem) Mkdir(pathname string) error                         { return filesystem.ErrReadonlyFilesystem }
func (fs *FileSystem) Mknod(pathname string, mode uint32, dev int) error   { return filesystem.ErrReadonlyFilesystem }
func (fs *FileSystem) Link(oldpath, newpath string) error                  { return filesystem.ErrReadonlyFilesystem }
func (fs *FileSystem) Symlink(oldpath, newpath string) error               { return filesystem.ErrReadonlyFilesystem }
func (fs *FileSystem) Chmod(name string, mode os.FileMode) error           { return filesystem.ErrReadonlyFilesystem }
func (fs *FileSystem) Chown(name string, uid, gid int) error               { return filesystem.ErrReadonlyFilesystem }
func (fs *FileSystem) Rename(oldpath, newpath string) error                { return filesystem.ErrReadonlyFilesystem }
func (fs *FileSystem) Remove(pathname string) error                        { return filesystem.ErrReadonlyFilesystem }

// ReadDir returns the contents of a given directory as os.FileInfo, per the
// filesystem.FileSystem contract.
func (fs *FileSystem) ReadDir(pathname string) ([]os.FileInfo, error) {
	dir, err := fs.resolvePath(pathname)
	if err != nil {
		return nil, fmt.Errorf("error reading directory %s: %w", pathname, err)
	}
	entries, err := fs.readDirectory(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading directory %s: %w", pathname, err)
	}

	ret := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		in, err := fs.readInode(e.Inode)
		if err != nil {
			return nil, fmt.Errorf("could not read inode %d (name=%s): %w", e.Inode, e.Name, err)
		}
		ret = append(ret, fileInfo{
			name:    e.Name,
			size:    int64(in.size(fs.superblock)),
			mode:    os.FileMode(in.permissions()) | in.modeType(),
			modTime: in.modifyTime,
			isDir:   in.isDirectory(),
		})
	}
	return ret, nil
}

// OpenFile opens a regular file for reading. Any write flag is rejected
// since this core never mutates the backing device.
func (fs *FileSystem) OpenFile(pathname string, flag int) (filesystem.File, error) {
	if flag&(os.O_CREATE|os.O_APPEND|os.O_WRONLY|os.O_RDWR) != 0 {
		return nil, filesystem.ErrReadonlyFilesystem
	}
	in, err := fs.resolvePath(pathname)
	if err != nil {
		return nil, err
	}
	if in.isDirectory() {
		return nil, fmt.Errorf("cannot open directory %s as file", pathname)
	}
	return &readOnlyFile{File: &File{fs: fs, inode: in}}, nil
}

// fileInfo is a minimal os.FileInfo for directory listings, grounded on the
// teacher's ext4.FileInfo (filesystem/ext4/ext4.go).
type fileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
	isDir   bool
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return fi.size }
func (fi fileInfo) Mode() os.FileMode  { return fi.mode }
func (fi fileInfo) ModTime() time.Time { return fi.modTime }
func (fi fileInfo) IsDir() bool        { return fi.isDir }
func (fi fileInfo) Sys() interface{}   { return nil }

// readOnlyFile adapts *File (io.Reader/Seeker/Closer) to the broader
// filesystem.File contract (fs.ReadDirFile + io.Writer + io.Seeker), which
// this read-only core never satisfies beyond returning errors.
type readOnlyFile struct {
	*File
}

func (f *readOnlyFile) Stat() (os.FileInfo, error) {
	return fileInfo{
		name:    "",
		size:    f.File.Size(),
		mode:    os.FileMode(f.File.inode.permissions()) | f.File.inode.modeType(),
		modTime: f.File.inode.modifyTime,
		isDir:   false,
	}, nil
}

func (f *readOnlyFile) ReadDir(n int) ([]os.DirEntry, error) {
	return nil, errors.New("not a directory")
}

func (f *readOnlyFile) Write(p []byte) (int, error) {
	return 0, filesystem.ErrReadonlyFilesystem
}
