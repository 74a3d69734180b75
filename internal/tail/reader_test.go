package tail

import (
	"os"
	"path/filepath"
	"testing"

	xerrors "github.com/frontend-infra/nginx-log-exporter/pkg/errors"
)

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
}

func collectLines(t *testing.T, st *FileState) []string {
	t.Helper()
	var lines []string
	if err := ReadNewLines(st, func(line string) {
		lines = append(lines, line)
	}); err != nil {
		t.Fatalf("ReadNewLines() error = %v", err)
	}
	return lines
}

func TestReadNewLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	appendFile(t, path, "first\nsecond\n")

	st := &FileState{Path: path}
	lines := collectLines(t, st)

	if len(lines) != 2 || lines[0] != "first" || lines[1] != "second" {
		t.Errorf("lines = %v, want [first second]", lines)
	}
	if st.Offset != 13 {
		t.Errorf("offset = %d, want 13 (full file length)", st.Offset)
	}
}

func TestReadNewLinesIncremental(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	appendFile(t, path, "first\n")

	st := &FileState{Path: path}
	if got := collectLines(t, st); len(got) != 1 {
		t.Fatalf("first pass lines = %v", got)
	}

	// No new bytes: nothing to consume, offset holds.
	if got := collectLines(t, st); len(got) != 0 {
		t.Errorf("re-read without new data yielded %v", got)
	}
	if st.Offset != 6 {
		t.Errorf("offset = %d, want 6", st.Offset)
	}

	appendFile(t, path, "second\n")
	got := collectLines(t, st)
	if len(got) != 1 || got[0] != "second" {
		t.Errorf("second pass lines = %v, want [second]", got)
	}
	if st.Offset != 13 {
		t.Errorf("offset = %d, want 13", st.Offset)
	}
}

func TestReadNewLinesPartialTrailingLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	appendFile(t, path, "complete\npartial")

	st := &FileState{Path: path}
	lines := collectLines(t, st)

	if len(lines) != 1 || lines[0] != "complete" {
		t.Errorf("lines = %v, want [complete]", lines)
	}
	// The unterminated fragment is left for the next scrape.
	if st.Offset != 9 {
		t.Errorf("offset = %d, want 9", st.Offset)
	}

	appendFile(t, path, " now done\n")
	lines = collectLines(t, st)
	if len(lines) != 1 || lines[0] != "partial now done" {
		t.Errorf("lines = %v, want [partial now done]", lines)
	}
	if st.Offset != 26 {
		t.Errorf("offset = %d, want 26", st.Offset)
	}
}

func TestReadNewLinesSkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	appendFile(t, path, "one\n\n   \ntwo\n")

	st := &FileState{Path: path}
	lines := collectLines(t, st)

	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Errorf("lines = %v, want [one two]", lines)
	}
	// Blank lines still advance the offset.
	if st.Offset != 13 {
		t.Errorf("offset = %d, want 13", st.Offset)
	}
}

func TestReadNewLinesOpenFailure(t *testing.T) {
	st := &FileState{Path: filepath.Join(t.TempDir(), "missing.log")}
	err := ReadNewLines(st, func(string) {})
	if xerrors.CodeOf(err) != xerrors.ErrCodeFileOpen {
		t.Errorf("code = %v, want FILE_OPEN", xerrors.CodeOf(err))
	}
	if st.Offset != 0 {
		t.Errorf("offset mutated on open failure: %d", st.Offset)
	}
}

func TestReadNewLinesFromOffset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	appendFile(t, path, "old line\nnew line\n")

	st := &FileState{Path: path, Offset: 9}
	lines := collectLines(t, st)

	if len(lines) != 1 || lines[0] != "new line" {
		t.Errorf("lines = %v, want [new line]", lines)
	}
	if st.Offset != 18 {
		t.Errorf("offset = %d, want 18", st.Offset)
	}
}
