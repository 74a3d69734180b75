package tail

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/frontend-infra/nginx-log-exporter/pkg/errors"
)

// ReadNewLines opens st.Path, seeks to the tracked offset, and reads forward
// line by line until end of stream, calling fn for every complete non-blank
// line with the terminator stripped. The offset advances by the exact byte
// length consumed, terminator included, after each line regardless of what fn
// does with it, so a line is never re-read. Blank and whitespace-only lines
// advance the offset without a callback.
//
// A trailing fragment with no line terminator is left unconsumed for the next
// scrape; the offset stays in front of it.
func ReadNewLines(st *FileState, fn func(line string)) error {
	f, err := os.Open(st.Path)
	if err != nil {
		return errors.NewError(errors.ErrCodeFileOpen,
			"failed to open log file").WithPath(st.Path).WithCause(err)
	}
	defer f.Close()

	if _, err := f.Seek(st.Offset, io.SeekStart); err != nil {
		return errors.NewError(errors.ErrCodeFileRead,
			"failed to seek to tracked offset").WithPath(st.Path).WithCause(err)
	}

	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			// line holds an incomplete trailing fragment (possibly empty);
			// it stays on disk until a terminator arrives.
			return nil
		}
		if err != nil {
			return errors.NewError(errors.ErrCodeFileRead,
				"failed to read line").WithPath(st.Path).WithCause(err)
		}

		if trimmed := strings.TrimSpace(line); trimmed != "" {
			fn(trimmed)
		}
		st.Offset += int64(len(line))
	}
}
