package transcript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	filePrefix = "steering_session_"
	fileSuffix = ".txt"
	timeLayout = "20060102_150405"
)

// Sink persists a finished session record and returns where it was written.
type Sink interface {
	Write(ctx context.Context, rec Record) (string, error)
}

// FileSink writes transcripts as steering_session_<YYYYMMDD_HHMMSS>.txt
// files under a directory.
type FileSink struct {
	dir string
	now func() time.Time
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithClock overrides the time source used to name files.
func WithClock(now func() time.Time) FileSinkOption {
	return func(s *FileSink) { s.now = now }
}

// NewFileSink creates a FileSink rooted at dir. The directory is created on
// first write.
func NewFileSink(dir string, opts ...FileSinkOption) *FileSink {
	s := &FileSink{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the output directory.
func (s *FileSink) Dir() string {
	return s.dir
}

// Write renders rec and stores it atomically: the content goes to a hidden
// temp file that is renamed into place. A name already taken within the same
// second gets a numeric suffix instead of being overwritten.
func (s *FileSink) Write(_ context.Context, rec Record) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	path := s.availablePath(s.now().Format(timeLayout))

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(Render(rec)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: %s: %v", ErrWriteFailed, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: %s: %v", ErrWriteFailed, path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: %s: %v", ErrWriteFailed, path, err)
	}

	return path, nil
}

// List returns the transcript file names in the directory, oldest first.
// A missing directory yields an empty list.
func (s *FileSink) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list transcripts: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		names = append(names, name)
	}

	sort.Strings(names)
	return names, nil
}

func (s *FileSink) availablePath(stamp string) string {
	path := filepath.Join(s.dir, filePrefix+stamp+fileSuffix)
	for n := 1; exists(path); n++ {
		path = filepath.Join(s.dir, fmt.Sprintf("%s%s_%d%s", filePrefix, stamp, n, fileSuffix))
	}
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
