package userfs

import "syscall"

const (
	// ENOATTR reports a missing extended attribute.
	ENOATTR = Error(syscall.ENOATTR)

	// EFTYPE reports an entry whose type the stat buffer cannot express.
	EFTYPE = Error(syscall.EFTYPE)
)
