package machine

import (
	"bufio"
	"io"
	"os"
	"strings"
)

const maxSourceLine = 1024 * 1024

// FileSource reads an upload job from a file, one trimmed line at a time.
type FileSource struct {
	f    *os.File
	scan *bufio.Scanner
}

var _ UploadSource = &FileSource{}

// OpenFileSource opens name for streaming.
func OpenFileSource(name string) (*FileSource, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	scan := bufio.NewScanner(f)
	scan.Buffer(make([]byte, 0, 4096), maxSourceLine)
	return &FileSource{f: f, scan: scan}, nil
}

func (s *FileSource) Next() (string, error) {
	if !s.scan.Scan() {
		if err := s.scan.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(s.scan.Text()), nil
}

func (s *FileSource) Close() error { return s.f.Close() }

// LinesSource serves an in-memory job.
type LinesSource struct {
	Lines []string
	n     int
}

var _ UploadSource = &LinesSource{}

// NewLinesSource splits text on newlines; a trailing newline does not add a line.
func NewLinesSource(text string) *LinesSource {
	text = strings.TrimSuffix(strings.Replace(text, "\r\n", "\n", -1), "\n")
	if text == "" {
		return &LinesSource{}
	}
	return &LinesSource{Lines: strings.Split(text, "\n")}
}

func (s *LinesSource) Next() (string, error) {
	if s.n == len(s.Lines) {
		return "", io.EOF
	}

	s.n++
	return strings.TrimSpace(s.Lines[s.n-1]), nil
}

func (s *LinesSource) Close() error { return nil }
