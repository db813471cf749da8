// Package dirlock provides an advisory lock on a directory for coordinating
// access to shared state across processes.
//
// The lock is an OS file lock (flock on Unix, LockFileEx on Windows) on a
// marker file inside the directory. It is held per open file, so two DirLock
// values in the same process exclude each other just like two processes do,
// and it is released by the kernel if the holder dies.
package dirlock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LockFileName is the name of the marker file inside the locked directory.
const LockFileName = "lock"

// Error types for lock operations
var (
	// ErrLockConflict indicates the lock is held by someone else
	ErrLockConflict = errors.New("directory is locked by another process")

	// ErrNoLockFile indicates the marker file does not exist
	ErrNoLockFile = errors.New("lock file does not exist")
)

// DirLock represents a directory lock instance
type DirLock interface {
	// TryLock attempts to acquire lock without blocking
	// Returns ErrLockConflict if lock is held elsewhere
	TryLock() error

	// Lock acquires lock, blocking until available or context is cancelled
	Lock(ctx context.Context) error

	// Unlock releases the lock; it is a no-op if the lock is not held
	Unlock() error

	// IsLocked checks if directory is currently locked by anyone
	IsLocked() bool

	// IsHeldByMe checks if this instance holds the lock
	IsHeldByMe() bool
}

// LockOptions configures lock behavior
type LockOptions struct {
	// RetryInterval for lock acquisition attempts (default: 50ms)
	RetryInterval time.Duration
}

// dirLock implements the DirLock interface
type dirLock struct {
	targetDir string
	opts      *LockOptions
	file      *os.File
	mu        sync.Mutex
}

// New creates a new directory lock instance
func New(directory string, opts *LockOptions) DirLock {
	if opts == nil {
		opts = &LockOptions{}
	}
	if opts.RetryInterval == 0 {
		opts.RetryInterval = 50 * time.Millisecond
	}

	return &dirLock{
		targetDir: directory,
		opts:      opts,
	}
}

// Init creates the lock marker file in directory if it does not exist.
func Init(directory string) error {
	f, err := os.OpenFile(filepath.Join(directory, LockFileName), os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	return f.Close()
}

// TryLock attempts to acquire lock without blocking
func (l *dirLock) TryLock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return nil // Already held by us
	}

	f, err := l.open()
	if err != nil {
		return err
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return err
	}

	l.file = f
	return nil
}

// Lock acquires lock, blocking until available or context is cancelled
func (l *dirLock) Lock(ctx context.Context) error {
	err := l.TryLock()
	if err == nil || !errors.Is(err, ErrLockConflict) {
		return err
	}

	ticker := time.NewTicker(l.opts.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := l.TryLock(); err == nil {
				return nil
			} else if !errors.Is(err, ErrLockConflict) {
				return err
			}
		}
	}
}

// Unlock releases the lock
func (l *dirLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	f := l.file
	l.file = nil

	unlockErr := unlockFile(f)
	closeErr := f.Close()
	if unlockErr != nil {
		return fmt.Errorf("failed to unlock %s: %w", f.Name(), unlockErr)
	}
	if closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		return fmt.Errorf("failed to close lock file: %w", closeErr)
	}
	return nil
}

// IsLocked checks if directory is currently locked
func (l *dirLock) IsLocked() bool {
	if l.IsHeldByMe() {
		return true
	}

	f, err := l.open()
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	if err := lockFile(f); err != nil {
		return errors.Is(err, ErrLockConflict)
	}
	_ = unlockFile(f)
	return false
}

// IsHeldByMe checks if this instance holds the lock
func (l *dirLock) IsHeldByMe() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file != nil
}

func (l *dirLock) open() (*os.File, error) {
	path := filepath.Join(l.targetDir, LockFileName)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoLockFile, path)
		}
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	return f, nil
}
