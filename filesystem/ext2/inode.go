package ext2

import (
	"encoding/binary"
	"os"
	"time"
)

type fileType uint16

const (
	fileTypeFifo            fileType = 0x1000
	fileTypeCharacterDevice fileType = 0x2000
	fileTypeDirectory       fileType = 0x4000
	fileTypeBlockDevice     fileType = 0x6000
	fileTypeRegularFile     fileType = 0x8000
	fileTypeSymbolicLink    fileType = 0xA000
	fileTypeSocket          fileType = 0xC000

	fileTypeMask fileType = 0xF000
	permMask              = 0x0FFF

	classicInodeSize = 128

	directPointers = 12
)

// inode is the decoded record spec.md §3 "Inode (decoded)" describes,
// grounded on the teacher's inodeFromBytes (filesystem/ext4/inode.go) and
// the teacher-fork inode.go (other_examples/7934d2fd_trustelem-go-diskfs...)
// byte offsets, with the extent tree (ext4-only) replaced by the classic
// twelve direct + three indirect block-pointer array spec.md §3/§4.E name.
type inode struct {
	number       uint32
	mode         uint16
	fileType     fileType
	uid          uint32
	gid          uint32
	sizeLow      uint32
	sizeHigh     uint32
	accessTime   time.Time
	changeTime   time.Time
	modifyTime   time.Time
	deletionTime uint32
	linksCount   uint16
	blocks512    uint32
	flags        uint32
	block        [15]uint32 // direct[0..11], indirect1, indirect2, indirect3
	generation   uint32
	fileACL      uint32
}

// size returns the inode's logical byte size per spec.md §4.F: the high
// word only participates for regular files guarded by the read-only
// "large file" feature bit, and is ignored for every other type.
func (i *inode) size(sb *superblock) uint64 {
	if i.fileType == fileTypeRegularFile && sb.has64BitFileSize() {
		return uint64(i.sizeHigh)<<32 | uint64(i.sizeLow)
	}
	return uint64(i.sizeLow)
}

func (i *inode) isDirectory() bool {
	return i.fileType == fileTypeDirectory
}

// modeType maps the inode's on-disk file type to the os.FileMode type bits
// a caller needs to tell directories, symlinks, and device nodes apart in a
// directory listing (used by cmd/ext2ls).
func (i *inode) modeType() os.FileMode {
	switch i.fileType {
	case fileTypeDirectory:
		return os.ModeDir
	case fileTypeSymbolicLink:
		return os.ModeSymlink
	case fileTypeCharacterDevice:
		return os.ModeDevice | os.ModeCharDevice
	case fileTypeBlockDevice:
		return os.ModeDevice
	case fileTypeFifo:
		return os.ModeNamedPipe
	case fileTypeSocket:
		return os.ModeSocket
	default:
		return 0
	}
}

func (i *inode) isLive() bool {
	return i.deletionTime == 0
}

// inodeFromBytes decodes the mandatory 128-byte classic prefix of an inode
// record. Bytes beyond that prefix (present when the superblock's inodeSize
// is larger) are neither decoded nor kept: the returned inode holds only the
// prefix fields, and readInode discards the raw buffer.
func inodeFromBytes(b []byte, number uint32) (*inode, error) {
	if len(b) < classicInodeSize {
		return nil, ErrCannotReadRootInode
	}

	mode := binary.LittleEndian.Uint16(b[0x0:0x2])
	in := &inode{
		number:       number,
		mode:         mode,
		fileType:     fileType(mode) & fileTypeMask,
		uid:          uint32(binary.LittleEndian.Uint16(b[0x2:0x4])),
		sizeLow:      binary.LittleEndian.Uint32(b[0x4:0x8]),
		accessTime:   time.Unix(int64(binary.LittleEndian.Uint32(b[0x8:0xc])), 0),
		changeTime:   time.Unix(int64(binary.LittleEndian.Uint32(b[0xc:0x10])), 0),
		modifyTime:   time.Unix(int64(binary.LittleEndian.Uint32(b[0x10:0x14])), 0),
		deletionTime: binary.LittleEndian.Uint32(b[0x14:0x18]),
		gid:          uint32(binary.LittleEndian.Uint16(b[0x18:0x1a])),
		linksCount:   binary.LittleEndian.Uint16(b[0x1a:0x1c]),
		blocks512:    binary.LittleEndian.Uint32(b[0x1c:0x20]),
		flags:        binary.LittleEndian.Uint32(b[0x20:0x24]),
		generation:   binary.LittleEndian.Uint32(b[0x64:0x68]),
		fileACL:      binary.LittleEndian.Uint32(b[0x68:0x6c]),
		sizeHigh:     binary.LittleEndian.Uint32(b[0x6c:0x70]),
	}

	for n := 0; n < 15; n++ {
		start := 0x28 + n*4
		in.block[n] = binary.LittleEndian.Uint32(b[start : start+4])
	}

	return in, nil
}

func (i *inode) permissions() uint16 {
	return i.mode & permMask
}
