//go:build linux || darwin

package watcher

import "golang.org/x/sys/unix"

func nodeName() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return ""
	}
	return unix.ByteSliceToString(u.Nodename[:])
}
