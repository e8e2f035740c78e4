// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"syscall"
)

// exhaustionErrnos are the inotify failures after which events for module
// output directories are silently lost: the per-user watch limit
// (fs.inotify.max_user_watches) and the descriptor limits.
var exhaustionErrnos = []syscall.Errno{syscall.ENOSPC, syscall.EMFILE, syscall.ENFILE}

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
