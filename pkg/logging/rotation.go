package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

type fileWriter interface {
	io.WriteCloser
	Sync() error
}

// rotatingFile is an append-only file that rotates by size. Rotated copies
// get a timestamp suffix and at most maxFiles of them are retained. A
// maxSize of zero disables rotation.
type rotatingFile struct {
	file     fileWriter
	path     string
	maxSize  int64
	curSize  int64
	maxFiles int
}

func openRotatingFile(path string, maxSize int64, maxFiles int) (*rotatingFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	var curSize int64
	if info, err := file.Stat(); err == nil {
		curSize = info.Size()
	}

	return &rotatingFile{
		file:     file,
		path:     path,
		maxSize:  maxSize,
		curSize:  curSize,
		maxFiles: maxFiles,
	}, nil
}

// Write appends one record, rotating first when the record would cross the
// size cap.
func (r *rotatingFile) Write(p []byte) (int, error) {
	if r.maxSize > 0 && r.curSize+int64(len(p)) >= r.maxSize {
		if err := r.rotate(); err != nil {
			return 0, fmt.Errorf("failed to rotate %s: %w", r.path, err)
		}
	}

	n, err := r.file.Write(p)
	r.curSize += int64(n)
	return n, err
}

func (r *rotatingFile) Sync() error {
	return r.file.Sync()
}

func (r *rotatingFile) Close() error {
	return r.file.Close()
}

func (r *rotatingFile) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}

	backupPath := fmt.Sprintf("%s.%s", r.path, time.Now().Format("20060102-150405"))
	if err := os.Rename(r.path, backupPath); err != nil {
		return err
	}

	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	r.file = file
	r.curSize = 0

	if r.maxFiles > 0 {
		if err := r.cleanOldFiles(); err != nil {
			fmt.Fprintf(os.Stderr, "Error cleaning rotated files for %s: %v\n", r.path, err)
		}
	}

	return nil
}

// cleanOldFiles removes the oldest rotated copies beyond maxFiles. ReadDir
// returns names sorted, and the timestamp suffix sorts chronologically.
func (r *rotatingFile) cleanOldFiles() error {
	dir := filepath.Dir(r.path)
	base := filepath.Base(r.path)

	files, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var rotated []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		name := file.Name()
		if name != base && len(name) > len(base) && name[:len(base)] == base {
			rotated = append(rotated, filepath.Join(dir, name))
		}
	}

	if len(rotated) > r.maxFiles {
		for i := 0; i < len(rotated)-r.maxFiles; i++ {
			if err := os.Remove(rotated[i]); err != nil {
				return err
			}
		}
	}

	return nil
}
