package ext2

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSuperblockBytes() []byte {
	buf := make([]byte, superblockSize)
	binary.LittleEndian.PutUint32(buf[0x0:0x4], 128)
	binary.LittleEndian.PutUint32(buf[0x4:0x8], 1024)
	binary.LittleEndian.PutUint32(buf[0x18:0x1c], 0) // log block size -> 1024
	binary.LittleEndian.PutUint32(buf[0x20:0x24], 1024)
	binary.LittleEndian.PutUint32(buf[0x28:0x2c], 128)
	binary.LittleEndian.PutUint16(buf[0x38:0x3a], magicValue)
	binary.LittleEndian.PutUint32(buf[0x4c:0x50], 1)
	binary.LittleEndian.PutUint16(buf[0x58:0x5a], 128)
	return buf
}

func TestSuperblockFromBytesValid(t *testing.T) {
	sb, err := superblockFromBytes(validSuperblockBytes())
	require.NoError(t, err)
	assert.EqualValues(t, 1024, sb.blockSize)
	assert.EqualValues(t, 1, sb.groupCount)
}

func TestSuperblockFromBytesBadMagic(t *testing.T) {
	buf := validSuperblockBytes()
	binary.LittleEndian.PutUint16(buf[0x38:0x3a], 0)
	_, err := superblockFromBytes(buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadMagic))
}

func TestSuperblockFromBytesInvalidInodeSize(t *testing.T) {
	buf := validSuperblockBytes()
	binary.LittleEndian.PutUint16(buf[0x58:0x5a], 100) // not a power of two
	_, err := superblockFromBytes(buf)
	require.Error(t, err)
	var invalid *InvalidInodeSize
	assert.ErrorAs(t, err, &invalid)
}

func TestSuperblockFromBytesInconsistentGroupCount(t *testing.T) {
	buf := validSuperblockBytes()
	binary.LittleEndian.PutUint32(buf[0x0:0x4], 256) // inode count implies 2 groups
	_, err := superblockFromBytes(buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInconsistentGroupCount))
}

func TestSuperblockFeatureFlags(t *testing.T) {
	buf := validSuperblockBytes()
	binary.LittleEndian.PutUint32(buf[0x60:0x64], incompatFiletype)
	binary.LittleEndian.PutUint32(buf[0x64:0x68], roCompatLargeFile)
	sb, err := superblockFromBytes(buf)
	require.NoError(t, err)
	assert.True(t, sb.hasFiletype())
	assert.True(t, sb.has64BitFileSize())
}
