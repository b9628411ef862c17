//go:build linux

package file

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// blockDeviceSize probes the size of a raw block device via BLKGETSIZE64,
// the same ioctl-via-Sys() technique the teacher uses for BLKRRPART/BLKSSZGET
// in disk_unix.go.
func blockDeviceSize(f *os.File) (int64, error) {
	var size uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size)))
	if errno != 0 {
		return 0, errno
	}
	return int64(size), nil
}
