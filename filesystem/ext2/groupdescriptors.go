package ext2

import (
	"encoding/binary"
)

const groupDescriptorSize = 32

// groupDescriptor is the 32-byte classic block-group descriptor record,
// grounded on the teacher fork's groupDescriptorFromBytes
// (other_examples/35b555c0_trustelem-go-diskfs...), trimmed to the fields
// spec.md §3 names (no 64-bit doubling, no checksums — both are ext4-only
// incompat features this core never sets as understood).
type groupDescriptor struct {
	blockBitmap     uint32
	inodeBitmap     uint32
	inodeTable      uint32
	freeBlocksCount uint16
	freeInodesCount uint16
	usedDirsCount   uint16
}

// bgdtStartBlock is the block index immediately following the superblock's
// own block, per spec.md §3/§6.
func bgdtStartBlock(blockSize uint32) uint32 {
	if blockSize == 1024 {
		return 2
	}
	return 1
}

// groupDescriptorsFromBytes decodes the contiguous BGDT array and validates
// each entry per spec.md §4.C: bitmap and inode-table block numbers must lie
// within the filesystem.
func groupDescriptorsFromBytes(b []byte, groupCount, totalBlocks uint32) ([]groupDescriptor, error) {
	descriptors := make([]groupDescriptor, groupCount)
	for i := uint32(0); i < groupCount; i++ {
		start := i * groupDescriptorSize
		end := start + groupDescriptorSize
		if end > uint32(len(b)) {
			return nil, &CorruptBGDT{Group: int(i)}
		}
		gd := groupDescriptor{
			blockBitmap:     binary.LittleEndian.Uint32(b[start+0x0 : start+0x4]),
			inodeBitmap:     binary.LittleEndian.Uint32(b[start+0x4 : start+0x8]),
			inodeTable:      binary.LittleEndian.Uint32(b[start+0x8 : start+0xc]),
			freeBlocksCount: binary.LittleEndian.Uint16(b[start+0xc : start+0xe]),
			freeInodesCount: binary.LittleEndian.Uint16(b[start+0xe : start+0x10]),
			usedDirsCount:   binary.LittleEndian.Uint16(b[start+0x10 : start+0x12]),
		}
		if gd.blockBitmap >= totalBlocks || gd.inodeBitmap >= totalBlocks || gd.inodeTable >= totalBlocks {
			return nil, &CorruptBGDT{Group: int(i)}
		}
		descriptors[i] = gd
	}
	return descriptors, nil
}
