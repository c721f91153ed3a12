package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// StdinPath is the log source name that reads standard input.
const StdinPath = "-"

// maxLineSize caps the bytes kept per line. The rest of a longer line is
// discarded and the kept prefix is still returned.
const maxLineSize = 1024 * 1024

// FileSource implements LineSource for reading from log files.
// The path "-" reads standard input.
type FileSource struct {
	files []string

	currentFile    io.ReadCloser
	currentReader  *lineReader
	currentSource  string
	currentLine    int
	fileIndex      int
}

// NewFileSource creates a LineSource that reads the given files in order.
func NewFileSource(files []string) *FileSource {
	return &FileSource{
		files:     files,
		fileIndex: -1,
	}
}

// Next returns the next raw line. Every line is returned, including blank and
// malformed ones, so the caller can report them.
// Returns io.EOF when all files have been exhausted.
func (s *FileSource) Next(ctx context.Context) (*LogLine, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if s.currentReader == nil {
			if err := s.openNextFile(); err != nil {
				return nil, err
			}
		}

		content, err := s.currentReader.next()
		if err == nil {
			s.currentLine++
			return &LogLine{
				Content: content,
				Source:  s.currentSource,
				LineNum: s.currentLine,
			}, nil
		}
		if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading %s: %w", s.currentSource, err)
		}

		// Current file exhausted, try next
		if err := s.closeCurrentFile(); err != nil {
			return nil, err
		}
	}
}

// Close releases resources.
func (s *FileSource) Close() error {
	return s.closeCurrentFile()
}

func (s *FileSource) openNextFile() error {
	s.fileIndex++
	if s.fileIndex >= len(s.files) {
		return io.EOF
	}

	path := s.files[s.fileIndex]
	var f io.ReadCloser
	if path == StdinPath {
		f = io.NopCloser(os.Stdin)
	} else {
		file, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
		if err != nil {
			return fmt.Errorf("opening log file %s: %w", path, err)
		}
		f = file
	}

	s.currentFile = f
	s.currentReader = newLineReader(f)
	s.currentSource = path
	s.currentLine = 0

	return nil
}

func (s *FileSource) closeCurrentFile() error {
	if s.currentFile != nil {
		err := s.currentFile.Close()
		s.currentFile = nil
		s.currentReader = nil
		return err
	}
	return nil
}

// ReaderSource implements LineSource over an arbitrary reader.
type ReaderSource struct {
	name    string
	reader  *lineReader
	lineNum int
}

// NewReaderSource reads lines from r, labelling them with name.
func NewReaderSource(r io.Reader, name string) *ReaderSource {
	return &ReaderSource{
		name:   name,
		reader: newLineReader(r),
	}
}

// Next returns the next line or io.EOF.
func (s *ReaderSource) Next(ctx context.Context) (*LogLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := s.reader.next()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.name, err)
	}
	s.lineNum++
	return &LogLine{
		Content: content,
		Source:  s.name,
		LineNum: s.lineNum,
	}, nil
}

// Close is a no-op; the caller owns the reader.
func (s *ReaderSource) Close() error {
	return nil
}

// lineReader splits input on '\n' like bufio.ScanLines, but never fails on
// long lines: bytes past maxLineSize are dropped.
type lineReader struct {
	r *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// next returns the next line without its terminator, or io.EOF once the
// input is exhausted. A final line without a newline is still returned.
func (l *lineReader) next() (string, error) {
	var line []byte
	truncated := false
	for {
		chunk, err := l.r.ReadSlice('\n')
		if err == nil {
			chunk = chunk[:len(chunk)-1]
		}
		if room := maxLineSize - len(line); room >= len(chunk) {
			line = append(line, chunk...)
		} else {
			line = append(line, chunk[:room]...)
			truncated = true
		}

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(line) == 0 {
				return "", io.EOF
			}
		case err != nil:
			return "", err
		}

		if !truncated && len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		return string(line), nil
	}
}
