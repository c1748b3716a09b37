//go:build !unix

package storage

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// fileLock falls back to exclusive creation where flock is unavailable. A
// holder that crashes leaves the file behind and it must be removed by hand.
type fileLock struct {
	f    *os.File
	path string
}

func acquireLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s is held", ErrLockContention, path)
		}
		return nil, fmt.Errorf("creating lock file %s: %w", path, err)
	}
	_, _ = fmt.Fprintf(f, "pid %d since %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	return &fileLock{f: f, path: path}, nil
}

// Release closes and removes the lock file.
func (l *fileLock) Release() error {
	closeErr := l.f.Close()
	rmErr := os.Remove(l.path)
	if errors.Is(rmErr, os.ErrNotExist) {
		rmErr = nil
	}
	return errors.Join(closeErr, rmErr)
}
