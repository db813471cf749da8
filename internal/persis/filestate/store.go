// Package filestate keeps the shared state of scheduler instances on disk.
//
// Each instance is a directory under the store root holding the advisory
// lock file, the slot bitmap, the job stack and the job id counter. All
// reads and writes of that state go through a transaction that holds the
// lock for its whole duration.
package filestate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/JaneliaSciComp/aitch/internal/cmn/dirlock"
	"github.com/JaneliaSciComp/aitch/internal/cmn/fileutil"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger/tag"
	"github.com/JaneliaSciComp/aitch/internal/core"
	"github.com/JaneliaSciComp/aitch/internal/core/slot"
)

// File names inside an instance directory.
const (
	BitmapFile  = "slot_availability"
	QueueFile   = "job_stack"
	CounterFile = "last_jobid"
)

// Store manages the instance directories under a root directory.
type Store struct {
	root          string
	retryInterval time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLockRetryInterval sets how often a blocked transaction retries the
// instance lock.
func WithLockRetryInterval(d time.Duration) Option {
	return func(s *Store) {
		s.retryInterval = d
	}
}

// New creates a store rooted at root.
func New(root string, opts ...Option) *Store {
	s := &Store{root: root}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the directory holding all instances.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the directory of the named instance.
func (s *Store) Dir(name string) string {
	return filepath.Join(s.root, name)
}

// Create initializes a new instance with the given per-dimension totals.
func (s *Store) Create(ctx context.Context, name string, totals []int) error {
	if err := validateName(name); err != nil {
		return err
	}
	if len(totals) == 0 {
		return fmt.Errorf("at least one slot dimension is required")
	}
	for _, n := range totals {
		if n < 0 {
			return fmt.Errorf("slot totals must not be negative: %v", totals)
		}
	}

	ctx = logger.WithValues(ctx, tag.Instance(name))
	if err := os.MkdirAll(s.root, 0o750); err != nil {
		return fmt.Errorf("failed to create root directory %s: %w", s.root, err)
	}

	dir := s.Dir(name)
	if err := os.Mkdir(dir, 0o750); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return s.alreadyRunning(name, totals)
		}
		return fmt.Errorf("failed to create instance directory %s: %w", dir, err)
	}

	files := []struct {
		name string
		data string
	}{
		{BitmapFile, slot.New(totals).String()},
		{QueueFile, encodeJobs(nil)},
		{CounterFile, "0\n"},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := fileutil.WriteFileAtomic(path, []byte(f.data)); err != nil {
			logger.Error(ctx, "Failed to initialize instance file", tag.File(path), tag.Error(err))
			_ = os.RemoveAll(dir)
			return err
		}
	}
	// The lock file goes last: an instance without it is not running yet.
	if err := dirlock.Init(dir); err != nil {
		_ = os.RemoveAll(dir)
		return err
	}

	logger.Info(ctx, "Instance started", tag.Dir(dir), tag.Slots(totals))
	return nil
}

func (s *Store) alreadyRunning(name string, totals []int) error {
	data, err := os.ReadFile(filepath.Join(s.Dir(name), BitmapFile)) //nolint:gosec
	if err == nil {
		if bitmap, perr := slot.Parse(string(data)); perr == nil {
			if slices.Equal(bitmap.Totals(), totals) {
				return fmt.Errorf("%w: instance %q has the requested slots", core.ErrAlreadyRunning, name)
			}
			return fmt.Errorf("%w: instance %q has different slots %v", core.ErrAlreadyRunning, name, bitmap.Totals())
		}
	}
	return fmt.Errorf("%w: instance %q", core.ErrAlreadyRunning, name)
}

// Open returns a handle on a running instance. The handle performs no I/O
// until a transaction is started.
func (s *Store) Open(_ context.Context, name string) (*Instance, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	dir := s.Dir(name)
	if !fileutil.IsDir(dir) {
		return nil, core.NewStateError(dir, core.ErrNotRunning)
	}
	for _, f := range []string{dirlock.LockFileName, BitmapFile, QueueFile} {
		path := filepath.Join(dir, f)
		if !fileutil.IsFile(path) {
			return nil, core.NewStateError(path, core.ErrNotRunning)
		}
	}
	return &Instance{
		name: name,
		dir:  dir,
		lockOpts: &dirlock.LockOptions{
			RetryInterval: s.retryInterval,
		},
	}, nil
}

// List returns the names of all instance directories under the root.
func (s *Store) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read root directory %s: %w", s.root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// ForceRemove deletes an instance directory whatever its content. It takes
// the lock when the lock file is still usable.
func (s *Store) ForceRemove(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	dir := s.Dir(name)
	if !fileutil.IsDir(dir) {
		return core.NewStateError(dir, core.ErrNotRunning)
	}

	lock := dirlock.New(dir, &dirlock.LockOptions{RetryInterval: s.retryInterval})
	if err := lock.Lock(ctx); err == nil {
		defer func() { _ = lock.Unlock() }()
	} else if !errors.Is(err, dirlock.ErrNoLockFile) {
		return fmt.Errorf("failed to lock instance %s: %w", name, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove instance directory %s: %w", dir, err)
	}
	logger.Info(ctx, "Instance removed", tag.Instance(name), tag.Force(true))
	return nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") ||
		filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", core.ErrInvalidInstanceName, name)
	}
	return nil
}

// Instance is a handle on one running scheduler instance.
type Instance struct {
	name     string
	dir      string
	lockOpts *dirlock.LockOptions
}

// Name returns the instance name.
func (i *Instance) Name() string {
	return i.name
}

// Dir returns the instance directory.
func (i *Instance) Dir() string {
	return i.dir
}

// Update runs fn under the instance lock and persists whatever fn changed.
// Nothing is written if fn returns an error.
func (i *Instance) Update(ctx context.Context, fn func(*Tx) error) error {
	return i.run(ctx, func(tx *Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		return tx.commit(ctx)
	})
}

// View runs fn under the instance lock on a consistent snapshot. Changes
// made by fn are discarded.
func (i *Instance) View(ctx context.Context, fn func(*Tx) error) error {
	return i.run(ctx, fn)
}

// Destroy runs fn under the instance lock and then removes the instance
// directory. fn may veto the removal by returning an error.
func (i *Instance) Destroy(ctx context.Context, fn func(*Tx) error) error {
	return i.run(ctx, func(tx *Tx) error {
		if fn != nil {
			if err := fn(tx); err != nil {
				return err
			}
		}
		if err := os.RemoveAll(i.dir); err != nil {
			return fmt.Errorf("failed to remove instance directory %s: %w", i.dir, err)
		}
		logger.Info(ctx, "Instance stopped", tag.Dir(i.dir))
		return nil
	})
}

func (i *Instance) run(ctx context.Context, fn func(*Tx) error) error {
	ctx = logger.WithValues(ctx, tag.Instance(i.name))

	// A fresh lock per transaction, so that concurrent transactions on the
	// same handle exclude each other too.
	lock := dirlock.New(i.dir, i.lockOpts)
	if err := lock.Lock(ctx); err != nil {
		if errors.Is(err, dirlock.ErrNoLockFile) {
			return core.NewStateError(filepath.Join(i.dir, dirlock.LockFileName), core.ErrNotRunning)
		}
		return fmt.Errorf("failed to lock instance %s: %w", i.name, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn(ctx, "Failed to release instance lock", tag.Error(err))
		}
	}()

	tx, err := load(ctx, i.dir)
	if err != nil {
		return err
	}
	return fn(tx)
}
