//go:build unix

package tail

import (
	"os"
	"syscall"
)

// inodeOf returns the inode of a file, used to detect replacement of a
// watched path by log rotation.
func inodeOf(info os.FileInfo) uint64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return st.Ino
	}
	return 0
}
