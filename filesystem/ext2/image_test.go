package ext2

import (
	"encoding/binary"

	"github.com/go-ext2/ext2fs/backend/memory"
)

// testImage hand-assembles a minimal, byte-exact ext2 image directly in
// memory, grounded on the teacher's style of constructing fixtures in
// filesystem/ext4/ext4_test.go (building raw bytes rather than shelling out
// to mkfs). Layout, block size 1024:
//
//	block 0: unused boot block
//	block 1: superblock
//	block 2: group descriptor table (one descriptor)
//	block 3: block bitmap (unused by this read-only core, left zero)
//	block 4: inode bitmap (unused, left zero)
//	block 5-8: inode table (32 inodes * 128 bytes = 4096 bytes = 4 blocks)
//	block 9+: data blocks
const (
	testBlockSize      = 1024
	testInodesPerGroup = 32
	testInodeTableLBA  = 5
	testInodeTableLen  = 4
	testFirstDataBlock = 9
	testBlockCount     = 64
)

type testImageBuilder struct {
	blocks map[uint32][]byte
}

func newTestImageBuilder() *testImageBuilder {
	return &testImageBuilder{blocks: map[uint32][]byte{}}
}

func (b *testImageBuilder) block(n uint32) []byte {
	if b.blocks[n] == nil {
		b.blocks[n] = make([]byte, testBlockSize)
	}
	return b.blocks[n]
}

func (b *testImageBuilder) writeSuperblock(incompat, rocompat uint32) {
	buf := make([]byte, superblockSize)
	binary.LittleEndian.PutUint32(buf[0x0:0x4], testInodesPerGroup) // inode count
	binary.LittleEndian.PutUint32(buf[0x4:0x8], testBlockCount)     // block count
	binary.LittleEndian.PutUint32(buf[0x14:0x18], 1)                // first data block (1024-byte blocksize)
	binary.LittleEndian.PutUint32(buf[0x18:0x1c], 0)                // log block size -> 1024
	binary.LittleEndian.PutUint32(buf[0x20:0x24], testBlockCount)   // blocks per group (single group)
	binary.LittleEndian.PutUint32(buf[0x28:0x2c], testInodesPerGroup)
	binary.LittleEndian.PutUint16(buf[0x38:0x3a], magicValue)
	binary.LittleEndian.PutUint32(buf[0x4c:0x50], 1) // major version >= 1, extended fields valid
	binary.LittleEndian.PutUint32(buf[0x54:0x58], 11)
	binary.LittleEndian.PutUint16(buf[0x58:0x5a], classicInodeSize)
	binary.LittleEndian.PutUint32(buf[0x60:0x64], incompat)
	binary.LittleEndian.PutUint32(buf[0x64:0x68], rocompat)

	// superblock lives inside block 1's 1024 bytes, at the start.
	block1 := b.block(1)
	copy(block1, buf)
}

func (b *testImageBuilder) writeGroupDescriptor() {
	gd := make([]byte, groupDescriptorSize)
	binary.LittleEndian.PutUint32(gd[0x0:0x4], 3) // block bitmap
	binary.LittleEndian.PutUint32(gd[0x4:0x8], 4) // inode bitmap
	binary.LittleEndian.PutUint32(gd[0x8:0xc], testInodeTableLBA)
	copy(b.block(2), gd)
}

// writeInode encodes one inode at the given 1-based inode number.
func (b *testImageBuilder) writeInode(number uint32, ft fileType, size uint32, direct []uint32) {
	tableBlock, tableOffset := inodeTablePosition(number)
	raw := b.block(tableBlock)

	base := tableOffset
	binary.LittleEndian.PutUint16(raw[base+0x0:base+0x2], uint16(ft)|0o644)
	binary.LittleEndian.PutUint32(raw[base+0x4:base+0x8], size)
	binary.LittleEndian.PutUint16(raw[base+0x1a:base+0x1c], 1) // links count
	for i, ptr := range direct {
		if i >= 15 {
			break
		}
		start := base + 0x28 + i*4
		binary.LittleEndian.PutUint32(raw[start:start+4], ptr)
	}
}

// inodeTablePosition returns which physical block holds the given inode
// number's record and the byte offset within that block.
func inodeTablePosition(number uint32) (block uint32, offset int) {
	index := number - 1
	perBlock := testBlockSize / classicInodeSize
	block = testInodeTableLBA + index/uint32(perBlock)
	offset = int(index%uint32(perBlock)) * classicInodeSize
	return
}

func (b *testImageBuilder) writeDirectory(blockNum uint32, entries []testDirEntry) {
	raw := b.block(blockNum)
	offset := 0
	for i, e := range entries {
		nameLen := len(e.name)
		recLen := dirEntryMinSize + nameLen
		recLen = (recLen + 3) &^ 3
		if i == len(entries)-1 {
			recLen = testBlockSize - offset // last entry absorbs the rest of the block
		}
		binary.LittleEndian.PutUint32(raw[offset:offset+4], e.inode)
		binary.LittleEndian.PutUint16(raw[offset+4:offset+6], uint16(recLen))
		raw[offset+6] = byte(nameLen)
		raw[offset+7] = e.fileTypeByte
		copy(raw[offset+8:offset+8+nameLen], e.name)
		offset += recLen
	}
}

type testDirEntry struct {
	inode        uint32
	name         string
	fileTypeByte byte
}

func (b *testImageBuilder) writeData(blockNum uint32, data []byte) {
	copy(b.block(blockNum), data)
}

// build lays every block out contiguously into one flat buffer and wraps it
// in a memory.Storage.
func (b *testImageBuilder) build() *memory.Storage {
	return memory.New(b.flatten(testBlockCount*testBlockSize), true)
}

// buildTruncated is like build but the backing buffer is only
// totalSize bytes, used to exercise the image-shorter-than-declared-size
// rejection path.
func (b *testImageBuilder) buildTruncated(totalSize int) *memory.Storage {
	return memory.New(b.flatten(totalSize), true)
}

func (b *testImageBuilder) flatten(size int) []byte {
	buf := make([]byte, size)
	for n, block := range b.blocks {
		start := int(n) * testBlockSize
		if start >= size {
			continue
		}
		end := start + testBlockSize
		if end > size {
			end = size
		}
		copy(buf[start:end], block[:end-start])
	}
	return buf
}
