package userfs

import "syscall"

const (
	// ENOATTR reports a missing extended attribute. Linux spells it ENODATA.
	ENOATTR = Error(syscall.ENODATA)

	// EFTYPE reports an entry whose type the stat buffer cannot express.
	// There is no EFTYPE in the Linux errno space.
	EFTYPE = Error(syscall.EINVAL)
)
