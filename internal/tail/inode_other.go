//go:build !unix

package tail

import "os"

// inodeOf has no meaningful answer on platforms without inodes; rotation
// detection falls back to the size comparison alone.
func inodeOf(info os.FileInfo) uint64 {
	return 0
}
