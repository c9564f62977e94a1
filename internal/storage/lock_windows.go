//go:build windows

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const lockFileName = "index.lock"

// Lock is an exclusive lock on a workspace cache directory. Windows has
// no flock; the PID file check here is best effort, not atomic.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock writes the holder's PID to the cache directory's lock file.
func AcquireLock(cacheDir string) (*Lock, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	path := filepath.Join(cacheDir, lockFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		file.Close()
		return nil, fmt.Errorf("writing PID to lock file: %w", err)
	}
	return &Lock{path: path, file: file}, nil
}

// Release drops the lock and removes the lock file. Safe on a nil lock.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	l.file.Close()
	os.Remove(l.path)
}
