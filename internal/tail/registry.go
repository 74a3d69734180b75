// Package tail tracks a glob-matched set of log files and reads newly
// appended bytes from each, detecting rotation by inode and size.
package tail

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/frontend-infra/nginx-log-exporter/pkg/errors"
)

// FileState tracks the read position of one watched file. Offset is
// monotonically non-decreasing except on rotation, where it resets to 0.
type FileState struct {
	Path   string
	Offset int64
	Inode  uint64
}

// Registry owns the set of watched files for a glob pattern. It is not safe
// for concurrent use; the scrape engine serializes access.
type Registry struct {
	pattern string
	files   map[string]*FileState
	logger  zerolog.Logger
}

// NewRegistry creates a registry for the given glob pattern.
func NewRegistry(pattern string, logger zerolog.Logger) *Registry {
	return &Registry{
		pattern: pattern,
		files:   make(map[string]*FileState),
		logger:  logger.With().Str("component", "tail").Logger(),
	}
}

// Refresh re-evaluates the glob pattern. Paths that no longer match are
// dropped, discarding their offsets; a path that reappears later starts over
// at offset 0. Newly matched paths are registered at offset 0 with the inode
// observed at registration time. File contents are not read.
func (r *Registry) Refresh() error {
	matches, err := filepath.Glob(r.pattern)
	if err != nil {
		return errors.Newf(errors.ErrCodeBadPattern,
			"failed to evaluate glob %q: %v", r.pattern, err).WithCause(err)
	}

	matched := make(map[string]bool, len(matches))
	for _, path := range matches {
		matched[path] = true
	}

	for path := range r.files {
		if !matched[path] {
			r.logger.Debug().Str("path", path).Msg("removing file from watch")
			delete(r.files, path)
		}
	}

	for _, path := range matches {
		if _, ok := r.files[path]; ok {
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			// Deferred to the next refresh; rotation tools can briefly
			// remove a file between the glob and the stat.
			r.logger.Warn().Str("path", path).Err(err).Msg("failed to stat new file")
			continue
		}

		r.logger.Debug().Str("path", path).Msg("adding file to watch")
		r.files[path] = &FileState{
			Path:  path,
			Inode: inodeOf(info),
		}
	}

	return nil
}

// Files returns the watched file states sorted by path.
func (r *Registry) Files() []*FileState {
	states := make([]*FileState, 0, len(r.files))
	for _, st := range r.files {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Path < states[j].Path })
	return states
}

// Len returns the number of watched files.
func (r *Registry) Len() int {
	return len(r.files)
}

// CheckRotation stats the file and compares the current inode and size
// against the tracked state. A changed inode (file replaced) or a size
// smaller than the tracked offset (file truncated in place) means rotation:
// the offset resets to 0 and the inode is updated. This runs immediately
// before every read, not only at discovery, because rotation can happen
// between scrapes.
//
// A failed stat returns a transient error and leaves the state untouched.
func (r *Registry) CheckRotation(st *FileState) (bool, error) {
	info, err := os.Stat(st.Path)
	if err != nil {
		return false, errors.NewError(errors.ErrCodeFileStat,
			"failed to get file metadata").WithPath(st.Path).WithCause(err)
	}

	inode := inodeOf(info)
	if st.Inode != inode || st.Offset > info.Size() {
		r.logger.Debug().Str("path", st.Path).Msg("file rotation detected")
		st.Offset = 0
		st.Inode = inode
		return true, nil
	}

	return false, nil
}
