package ext2

import "encoding/binary"

// resolver maps a logical file-block index to a physical block number by
// walking the inode's direct/indirect pointer tree, per spec.md §4.E. It is
// the module with no teacher equivalent (the teacher's ext4 package resolves
// extents, not a classic pointer tree); its shape — recursive per-level
// descent with a typed error at each step — follows the idiom of the
// teacher's extent.go tree walk.
//
// A resolver is constructed fresh per read (see file.go), which gives the
// spec's "invalidate on every new resolution request that starts at a
// different inode" rule for free: there is nothing to invalidate because
// nothing outlives the request.
type resolver struct {
	fs    *FileSystem
	inode *inode
	cache [3]indirectCacheSlot // one slot per indirection level
}

type indirectCacheSlot struct {
	valid    bool
	physical uint32
	pointers []uint32
}

func newResolver(fs *FileSystem, in *inode) *resolver {
	return &resolver{fs: fs, inode: in}
}

// pointersPerBlock is P in spec.md §4.E.
func (r *resolver) pointersPerBlock() uint64 {
	return uint64(r.fs.superblock.blockSize) / 4
}

// logicalToPhysical returns the physical block number for a logical file
// block index. ok == false with err == nil means a sparse hole.
func (r *resolver) logicalToPhysical(logical uint64) (physical uint32, ok bool, err error) {
	p := r.pointersPerBlock()

	switch {
	case logical < directPointers:
		return r.resolveDirect(uint32(logical))
	case logical < directPointers+p:
		return r.resolveIndirect(1, r.inode.block[12], logical-directPointers)
	case logical < directPointers+p+p*p:
		return r.resolveDoubleIndirect(logical - directPointers - p, p)
	case logical < directPointers+p+p*p+p*p*p:
		return r.resolveTripleIndirect(logical-directPointers-p-p*p, p)
	default:
		return 0, false, ErrFileBlockOutOfRange
	}
}

func (r *resolver) resolveDirect(logical uint32) (uint32, bool, error) {
	ptr := r.inode.block[logical]
	if ptr == 0 {
		return 0, false, nil
	}
	if err := r.validatePointer(ptr); err != nil {
		return 0, false, err
	}
	return ptr, true, nil
}

func (r *resolver) resolveIndirect(level int, root uint32, index uint64) (uint32, bool, error) {
	if root == 0 {
		return 0, false, nil
	}
	pointers, err := r.readIndirectBlock(level, root)
	if err != nil {
		return 0, false, err
	}
	ptr := pointers[index]
	if ptr == 0 {
		return 0, false, nil
	}
	if err := r.validatePointer(ptr); err != nil {
		return 0, false, err
	}
	return ptr, true, nil
}

func (r *resolver) resolveDoubleIndirect(offset uint64, p uint64) (uint32, bool, error) {
	root := r.inode.block[13]
	if root == 0 {
		return 0, false, nil
	}
	outer := offset / p
	inner := offset % p
	outerPointers, err := r.readIndirectBlock(2, root)
	if err != nil {
		return 0, false, err
	}
	outerPtr := outerPointers[outer]
	return r.resolveIndirect(1, outerPtr, inner)
}

func (r *resolver) resolveTripleIndirect(offset uint64, p uint64) (uint32, bool, error) {
	root := r.inode.block[14]
	if root == 0 {
		return 0, false, nil
	}
	outer := offset / (p * p)
	rest := offset % (p * p)
	outerPointers, err := r.readIndirectBlock(3, root)
	if err != nil {
		return 0, false, err
	}
	outerPtr := outerPointers[outer]
	return r.resolveDoubleIndirectFrom(outerPtr, rest, p)
}

func (r *resolver) resolveDoubleIndirectFrom(root uint32, offset, p uint64) (uint32, bool, error) {
	if root == 0 {
		return 0, false, nil
	}
	outer := offset / p
	inner := offset % p
	outerPointers, err := r.readIndirectBlock(2, root)
	if err != nil {
		return 0, false, err
	}
	outerPtr := outerPointers[outer]
	return r.resolveIndirect(1, outerPtr, inner)
}

// readIndirectBlock reads and decodes an indirect block's array of 32-bit
// pointers, consulting the per-level cache first. Cache keys are
// (level, physical_block) per spec.md §4.E.
func (r *resolver) readIndirectBlock(level int, physical uint32) ([]uint32, error) {
	slot := &r.cache[level-1]
	if slot.valid && slot.physical == physical {
		return slot.pointers, nil
	}
	if err := r.validatePointer(physical); err != nil {
		return nil, err
	}
	raw, err := r.fs.readBlock(physical)
	if err != nil {
		return nil, err
	}
	count := len(raw) / 4
	pointers := make([]uint32, count)
	for i := 0; i < count; i++ {
		pointers[i] = binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
	}
	*slot = indirectCacheSlot{valid: true, physical: physical, pointers: pointers}
	return pointers, nil
}

func (r *resolver) validatePointer(ptr uint32) error {
	if uint64(ptr) >= uint64(r.fs.superblock.blockCount) {
		return ErrCorruptIndirectBlock
	}
	return nil
}
