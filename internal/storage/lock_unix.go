//go:build unix

package storage

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// fileLock is an exclusive, non-blocking lock on a file that is removed on
// release. flock is released by the kernel when the holder exits, so a
// crashed sweep never leaves the lock held.
type fileLock struct {
	f    *os.File
	path string
}

func acquireLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", path, err)
	}
	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s is held", ErrLockContention, path)
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	// The previous holder unlinks the file before unlocking. If that
	// happened between our open and flock we hold an orphaned inode while
	// someone else may lock a new file at path.
	var held, current unix.Stat_t
	if err := unix.Fstat(fd, &held); err != nil {
		f.Close()
		return nil, fmt.Errorf("stat lock file %s: %w", path, err)
	}
	if err := unix.Stat(path, &current); err != nil || held.Dev != current.Dev || held.Ino != current.Ino {
		f.Close()
		return nil, fmt.Errorf("%w: %s was released concurrently", ErrLockContention, path)
	}

	// Diagnostics only.
	_ = f.Truncate(0)
	_, _ = fmt.Fprintf(f, "pid %d since %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	return &fileLock{f: f, path: path}, nil
}

// Release unlinks the lock file while still holding it, then unlocks.
func (l *fileLock) Release() error {
	rmErr := os.Remove(l.path)
	if errors.Is(rmErr, os.ErrNotExist) {
		rmErr = nil
	}
	return errors.Join(rmErr, l.f.Close())
}
