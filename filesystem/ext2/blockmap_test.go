package ext2

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-ext2/ext2fs/backend/memory"
)

func newTestFileSystem(blockSize uint32, blockCount uint32) *FileSystem {
	return &FileSystem{
		superblock: &superblock{blockSize: blockSize, blockCount: blockCount},
	}
}

func TestLogicalToPhysicalDirect(t *testing.T) {
	fs := newTestFileSystem(1024, 100)
	in := &inode{}
	in.block[3] = 42

	r := newResolver(fs, in)
	physical, ok, err := r.logicalToPhysical(3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 42, physical)
}

func TestLogicalToPhysicalDirectHole(t *testing.T) {
	fs := newTestFileSystem(1024, 100)
	in := &inode{}

	r := newResolver(fs, in)
	_, ok, err := r.logicalToPhysical(0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLogicalToPhysicalSingleIndirect(t *testing.T) {
	blockSize := uint32(1024)

	storage := memory.NewSize(int64(blockSize) * 10)
	indirectBlock := make([]byte, blockSize)
	binary.LittleEndian.PutUint32(indirectBlock[0:4], 77) // pointer at index 0
	binary.LittleEndian.PutUint32(indirectBlock[4:8], 78) // pointer at index 1
	_, err := storage.WriteAt(indirectBlock, int64(blockSize)*5)
	require.NoError(t, err)

	fs := &FileSystem{
		backend:    storage,
		superblock: &superblock{blockSize: blockSize, blockCount: 200},
	}
	in := &inode{}
	in.block[12] = 5 // indirect1 root block

	r := newResolver(fs, in)
	physical, ok, err := r.logicalToPhysical(directPointers)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 77, physical)

	physical, ok, err = r.logicalToPhysical(directPointers + 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 78, physical)
}

func TestLogicalToPhysicalOutOfRange(t *testing.T) {
	fs := newTestFileSystem(1024, 100)
	in := &inode{}

	p := fs.superblock.blockSize / 4
	huge := uint64(directPointers) + uint64(p) + uint64(p)*uint64(p) + uint64(p)*uint64(p)*uint64(p) + 1

	r := newResolver(fs, in)
	_, _, err := r.logicalToPhysical(huge)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileBlockOutOfRange)
}

func TestIndirectBlockCacheReused(t *testing.T) {
	blockSize := uint32(1024)
	storage := memory.NewSize(int64(blockSize) * 10)
	indirectBlock := make([]byte, blockSize)
	binary.LittleEndian.PutUint32(indirectBlock[0:4], 55)
	_, err := storage.WriteAt(indirectBlock, int64(blockSize)*5)
	require.NoError(t, err)

	fs := &FileSystem{
		backend:    storage,
		superblock: &superblock{blockSize: blockSize, blockCount: 200},
	}
	in := &inode{}
	in.block[12] = 5

	r := newResolver(fs, in)
	pointers1, err := r.readIndirectBlock(1, 5)
	require.NoError(t, err)
	assert.True(t, r.cache[0].valid)

	pointers2, err := r.readIndirectBlock(1, 5)
	require.NoError(t, err)
	assert.Equal(t, pointers1, pointers2)
}
