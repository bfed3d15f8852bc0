package userfs

import (
	"os/exec"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// FUSEDEVIOCGETHANDSHAKECOMPLETE, _IOR('F', 2, uint32):
// IOC_OUT | sizeof(uint32)<<16 | 'F'<<8 | 2.
const handshakeIoctl = 0x40044602

// HandshakeComplete queries a FUSE channel descriptor for kernel handshake
// completion. Available to hosts that own the descriptor themselves; the
// adapter's own poller works from the mount table instead.
func HandshakeComplete(fd uintptr) (bool, error) {
	var complete uint32
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, handshakeIoctl, uintptr(unsafe.Pointer(&complete)))
	if errno != 0 {
		return false, errno
	}
	return complete != 0, nil
}

// hostFuseMajorVersion reports the loaded FUSE kernel extension's major
// version, 0 when undetectable.
func hostFuseMajorVersion() int {
	for _, name := range []string{
		"vfs.generic.macfuse.version.number",
		"vfs.generic.osxfuse.version.number",
	} {
		v, err := unix.Sysctl(name)
		if err != nil {
			continue
		}
		if i := strings.IndexByte(v, '.'); i > 0 {
			v = v[:i]
		}
		if major, err := strconv.Atoi(v); err == nil {
			return major
		}
	}
	return 0
}

// Unmount detaches the volume at mountPath with the platform umount
// utility.
func Unmount(mountPath string) error {
	return exec.Command("umount", mountPath).Run()
}
