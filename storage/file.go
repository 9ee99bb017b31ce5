package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileLog stores lines in a newline-delimited file. The file is created
// lazily on the first write so never-written logs leave no file behind.
type FileLog struct {
	mu   sync.Mutex
	path string
	file *os.File // open for appending once writing starts
}

// NewFileLog creates a file-backed log at path. The file is not touched
// until Begin or Append.
func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

// Path returns the backing file path.
func (l *FileLog) Path() string {
	return l.path
}

// Load reads all lines from the backing file. A missing file is an empty log.
func (l *FileLog) Load(ctx context.Context) ([][]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lines, err := ReadFileLines(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", l.path, err)
	}
	return lines, nil
}

// Begin truncates the backing file, creating it and any missing parent
// directories.
func (l *FileLog) Begin(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.closeFile(); err != nil {
		return err
	}
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to truncate %s: %w", l.path, err)
	}
	l.file = file
	return nil
}

// Append writes one line followed by a newline.
func (l *FileLog) Append(ctx context.Context, line []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", l.path, err)
		}
		l.file = file
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append to %s: %w", l.path, err)
	}
	return nil
}

// Close closes the backing file if it was opened for writing.
func (l *FileLog) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeFile()
}

func (l *FileLog) closeFile() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", l.path, err)
	}
	return nil
}

// ReadFileLines reads a file and splits it into non-empty lines. A missing
// file yields (nil, nil).
func ReadFileLines(path string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var lines [][]byte
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}
