package ext2

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

const (
	superblockOffset = 1024
	superblockSize   = 1024

	magicValue uint16 = 0xEF53

	// feature bits this implementation understands, per spec.md §4.B step 6.
	incompatFiletype uint32 = 0x0002 // directory entries carry a file-type byte

	roCompatSparseSuper uint32 = 0x0001 // sparse superblock copies
	roCompatLargeFile   uint32 = 0x0002 // 64-bit file size on regular files
)

// superblock holds the decoded fields spec.md §3 names. Only the classic
// (major_version >= 1) extended tail fields this core actually consumes are
// kept; journal/hash-seed bytes that no operation here reads are not
// decoded, matching the teacher's habit of only keeping what is used.
type superblock struct {
	inodeCount      uint32
	blockCount      uint32
	reservedBlocks  uint32
	freeBlocks      uint32
	freeInodes      uint32
	firstDataBlock  uint32
	logBlockSize    uint32
	blockSize       uint32
	blocksPerGroup  uint32
	inodesPerGroup  uint32
	mountTime       time.Time
	writeTime       time.Time
	magic           uint16
	majorVersion    uint32
	minorVersion    uint16
	creatorOS       uint32

	// extended fields, valid (and defaulted) regardless of majorVersion per
	// spec.md §3's "else inode_size is 128" rule
	firstNonReservedInode uint32
	inodeSize             uint16
	featureCompat         uint32
	featureIncompat       uint32
	featureROCompat       uint32
	volumeUUID            uuid.UUID
	volumeLabel           string

	groupCount uint32
}

func (sb *superblock) hasFiletype() bool {
	return sb.featureIncompat&incompatFiletype != 0
}

func (sb *superblock) has64BitFileSize() bool {
	return sb.featureROCompat&roCompatLargeFile != 0
}

// superblockFromBytes decodes and validates the 1024-byte superblock per
// spec.md §4.B steps 3, 4 and the required-feature check of step 6 (the
// image-size check of step 5 is done by Mount, and the read-only-compatible
// mask is not checked), grounded on the teacher fork's superblockFromBytes
// byte-offset table (other_examples/80b55384_trustelem-go-diskfs...), with
// the ext4-only extent/journal/64-bit-block fields dropped since ext2
// classic never sets their feature bits.
func superblockFromBytes(b []byte) (*superblock, error) {
	if len(b) != superblockSize {
		return nil, fmt.Errorf("superblock must be exactly %d bytes, got %d", superblockSize, len(b))
	}

	magic := binary.LittleEndian.Uint16(b[0x38:0x3a])
	if magic != magicValue {
		return nil, ErrBadMagic
	}

	sb := &superblock{
		magic:          magic,
		inodeCount:     binary.LittleEndian.Uint32(b[0x0:0x4]),
		blockCount:     binary.LittleEndian.Uint32(b[0x4:0x8]),
		reservedBlocks: binary.LittleEndian.Uint32(b[0x8:0xc]),
		freeBlocks:     binary.LittleEndian.Uint32(b[0xc:0x10]),
		freeInodes:     binary.LittleEndian.Uint32(b[0x10:0x14]),
		firstDataBlock: binary.LittleEndian.Uint32(b[0x14:0x18]),
		logBlockSize:   binary.LittleEndian.Uint32(b[0x18:0x1c]),
		blocksPerGroup: binary.LittleEndian.Uint32(b[0x20:0x24]),
		inodesPerGroup: binary.LittleEndian.Uint32(b[0x28:0x2c]),
		mountTime:      time.Unix(int64(binary.LittleEndian.Uint32(b[0x2c:0x30])), 0),
		writeTime:      time.Unix(int64(binary.LittleEndian.Uint32(b[0x30:0x34])), 0),
		minorVersion:   binary.LittleEndian.Uint16(b[0x3e:0x40]),
		creatorOS:      binary.LittleEndian.Uint32(b[0x48:0x4c]),
		majorVersion:   binary.LittleEndian.Uint32(b[0x4c:0x50]),
	}

	var merr *multierror.Error

	if sb.logBlockSize > 3 {
		merr = multierror.Append(merr, ErrInvalidBlockSize)
	} else {
		sb.blockSize = 1024 << sb.logBlockSize
	}

	if sb.blocksPerGroup == 0 {
		merr = multierror.Append(merr, ErrInvalidBlocksPerGroup)
	}
	if sb.inodesPerGroup == 0 {
		merr = multierror.Append(merr, ErrInvalidInodesPerGroup)
	}

	if sb.blocksPerGroup != 0 && sb.inodesPerGroup != 0 {
		blockGroups := ceilDiv(sb.blockCount, sb.blocksPerGroup)
		inodeGroups := ceilDiv(sb.inodeCount, sb.inodesPerGroup)
		if blockGroups != inodeGroups {
			merr = multierror.Append(merr, ErrInconsistentGroupCount)
		} else {
			sb.groupCount = blockGroups
		}
	}

	// extended superblock tail, present when majorVersion >= 1
	if sb.majorVersion >= 1 {
		sb.firstNonReservedInode = binary.LittleEndian.Uint32(b[0x54:0x58])
		sb.inodeSize = binary.LittleEndian.Uint16(b[0x58:0x5a])
		sb.featureCompat = binary.LittleEndian.Uint32(b[0x5c:0x60])
		sb.featureIncompat = binary.LittleEndian.Uint32(b[0x60:0x64])
		sb.featureROCompat = binary.LittleEndian.Uint32(b[0x64:0x68])

		if id, err := uuid.FromBytes(b[0x68:0x78]); err == nil {
			sb.volumeUUID = id
		}
		sb.volumeLabel = cString(b[0x78:0x88])

		if sb.inodeSize < 128 || (sb.inodeSize&(sb.inodeSize-1)) != 0 || (sb.blockSize != 0 && sb.blockSize%uint32(sb.inodeSize) != 0) {
			merr = multierror.Append(merr, &InvalidInodeSize{Value: sb.inodeSize})
		}
	} else {
		sb.inodeSize = 128
		sb.firstNonReservedInode = 11
	}

	if unsupported := sb.featureIncompat &^ incompatFiletype; unsupported != 0 {
		merr = multierror.Append(merr, &UnsupportedRequiredFeature{Bitmask: unsupported})
	}

	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}

	return sb, nil
}

func ceilDiv(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	return uint32((uint64(a) + uint64(b) - 1) / uint64(b))
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// maxInodesPerGroup32Bit documents why inode numbers and block counts fit in
// uint32 throughout this package, per spec.md §4.E's tie-break note.
const maxInodesPerGroup32Bit = math.MaxUint32
