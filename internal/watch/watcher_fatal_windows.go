// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import (
	"errors"
	"syscall"
)

// exhaustionErrnos are the ReadDirectoryChangesW failures after which the
// watcher no longer reports output changes: the handle limit (4), a handle
// invalidated by deleting the watched directory (6) and a failed buffer
// allocation (8).
var exhaustionErrnos = []syscall.Errno{4, 6, 8}

func watcherExhausted(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	for _, e := range exhaustionErrnos {
		if errno == e {
			return true
		}
	}
	return false
}
