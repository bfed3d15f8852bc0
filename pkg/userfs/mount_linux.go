package userfs

import "os/exec"

// hostFuseMajorVersion reports 0: the xattr-mapping FUSE layers are a
// darwin affair, so double-file listings stay on.
func hostFuseMajorVersion() int {
	return 0
}

// Unmount detaches the volume at mountPath. fusermount handles the
// unprivileged case; plain umount covers the rest.
func Unmount(mountPath string) error {
	if err := exec.Command("fusermount", "-u", mountPath).Run(); err == nil {
		return nil
	}
	return exec.Command("umount", mountPath).Run()
}
