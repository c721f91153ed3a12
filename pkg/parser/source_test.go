package parser

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, src LineSource) []*LogLine {
	t.Helper()
	ctx := context.Background()
	var lines []*LogLine
	for {
		line, err := src.Next(ctx)
		if err == io.EOF {
			return lines
		}
		require.NoError(t, err)
		lines = append(lines, line)
	}
}

func TestFileSource_Next(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "auth.log")
	content := `Jan 5 10:00:01 host sshd[1]: Failed password for root from 10.0.0.5 port 1 ssh2
garbage

Jan 5 10:00:03 host sshd[1]: Accepted password for bob from 10.0.0.6 port 2 ssh2
`
	require.NoError(t, os.WriteFile(logFile, []byte(content), 0644))

	source := NewFileSource([]string{logFile})
	defer source.Close()

	lines := readAll(t, source)

	// Malformed and blank lines are returned too
	require.Len(t, lines, 4)
	assert.Equal(t, 1, lines[0].LineNum)
	assert.Equal(t, logFile, lines[0].Source)
	assert.Equal(t, "garbage", lines[1].Content)
	assert.Equal(t, "", lines[2].Content)
	assert.Equal(t, 4, lines[3].LineNum)
}

func TestFileSource_MultipleFiles(t *testing.T) {
	dir := t.TempDir()

	var paths []string
	for _, name := range []string{"a.log", "b.log"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("Jan 5 10:00:00 "+name+"\n"), 0644))
		paths = append(paths, path)
	}

	source := NewFileSource(paths)
	defer source.Close()

	lines := readAll(t, source)
	require.Len(t, lines, 2)
	assert.Equal(t, paths[0], lines[0].Source)
	assert.Equal(t, paths[1], lines[1].Source)
	// Line numbers restart per file
	assert.Equal(t, 1, lines[1].LineNum)
}

func TestFileSource_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "empty.log")
	require.NoError(t, os.WriteFile(logFile, nil, 0644))

	source := NewFileSource([]string{logFile})
	defer source.Close()

	_, err := source.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestFileSource_FileNotFound(t *testing.T) {
	source := NewFileSource([]string{"/nonexistent/auth.log"})
	defer source.Close()

	_, err := source.Next(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening log file")
}

func TestFileSource_ContextCancellation(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "auth.log")
	require.NoError(t, os.WriteFile(logFile, []byte("line\n"), 0644))

	source := NewFileSource([]string{logFile})
	defer source.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := source.Next(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestFileSource_Close(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "auth.log")
	require.NoError(t, os.WriteFile(logFile, []byte("one\ntwo\n"), 0644))

	source := NewFileSource([]string{logFile})
	_, err := source.Next(context.Background())
	require.NoError(t, err)

	assert.NoError(t, source.Close())
	// Closing twice is harmless
	assert.NoError(t, source.Close())
}

func TestReaderSource(t *testing.T) {
	src := NewReaderSource(strings.NewReader("a\nb\n"), "stdin")
	defer src.Close()

	lines := readAll(t, src)
	require.Len(t, lines, 2)
	assert.Equal(t, "stdin", lines[1].Source)
	assert.Equal(t, 2, lines[1].LineNum)
	assert.Equal(t, "b", lines[1].Content)
}

func TestReaderSource_ContextCancellation(t *testing.T) {
	src := NewReaderSource(strings.NewReader("a\n"), "r")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReaderSource_OverlongLineIsTruncated(t *testing.T) {
	long := "Jan 5 10:01:00 host junk " + strings.Repeat("x", 2*maxLineSize)
	input := "first\n" + long + "\nlast\n"

	lines := readAll(t, NewReaderSource(strings.NewReader(input), "auth.log"))

	require.Len(t, lines, 3)
	assert.Equal(t, "first", lines[0].Content)
	assert.Len(t, lines[1].Content, maxLineSize)
	assert.True(t, strings.HasPrefix(lines[1].Content, "Jan 5 10:01:00 host junk x"))
	assert.Equal(t, 2, lines[1].LineNum)
	assert.Equal(t, "last", lines[2].Content)
	assert.Equal(t, 3, lines[2].LineNum)
}

func TestFileSource_OverlongLineDoesNotStopReading(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "auth.log")
	content := "a\n" + strings.Repeat("y", maxLineSize+10) + "\nb"
	require.NoError(t, os.WriteFile(logFile, []byte(content), 0644))

	source := NewFileSource([]string{logFile})
	defer source.Close()

	lines := readAll(t, source)
	require.Len(t, lines, 3)
	assert.Len(t, lines[1].Content, maxLineSize)
	assert.Equal(t, "b", lines[2].Content, "final line without newline")
}

func TestReaderSource_LineEndings(t *testing.T) {
	lines := readAll(t, NewReaderSource(strings.NewReader("a\r\n\r\nb"), "r"))

	require.Len(t, lines, 3)
	assert.Equal(t, "a", lines[0].Content)
	assert.Equal(t, "", lines[1].Content)
	assert.Equal(t, "b", lines[2].Content)
}
