package filestate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/JaneliaSciComp/aitch/internal/cmn/fileutil"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger/tag"
	"github.com/JaneliaSciComp/aitch/internal/core"
	"github.com/JaneliaSciComp/aitch/internal/core/slot"
)

// Tx is the in-memory state of an instance while its lock is held.
type Tx struct {
	dir    string
	bitmap *slot.Bitmap
	jobs   []*core.Job
	lastID int

	// encodings as loaded; only files whose encoding changed are rewritten
	origBitmap string
	origJobs   string
	origLastID int
}

func load(ctx context.Context, dir string) (*Tx, error) {
	bitmapPath := filepath.Join(dir, BitmapFile)
	bitmapData, err := readStateFile(bitmapPath)
	if err != nil {
		return nil, err
	}
	bitmap, err := slot.Parse(bitmapData)
	if err != nil {
		logger.Error(ctx, "Failed to parse slot bitmap", tag.File(bitmapPath), tag.Error(err))
		return nil, core.NewStateError(bitmapPath, fmt.Errorf("%w: %v", core.ErrCorruptState, err))
	}

	queuePath := filepath.Join(dir, QueueFile)
	queueData, err := readStateFile(queuePath)
	if err != nil {
		return nil, err
	}
	jobs, err := decodeJobs(queueData, bitmap.Dims())
	if err != nil {
		logger.Error(ctx, "Failed to parse job stack", tag.File(queuePath), tag.Error(err))
		return nil, core.NewStateError(queuePath, err)
	}

	lastID, err := readCounter(filepath.Join(dir, CounterFile))
	if err != nil {
		return nil, err
	}
	// ids are never reused, even if the counter was lost
	for _, job := range jobs {
		lastID = max(lastID, job.ID)
	}

	return &Tx{
		dir:        dir,
		bitmap:     bitmap,
		jobs:       jobs,
		lastID:     lastID,
		origBitmap: bitmapData,
		origJobs:   queueData,
		origLastID: lastID,
	}, nil
}

func readStateFile(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", core.NewStateError(path, core.ErrNotRunning)
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func readCounter(path string) (int, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n < 0 {
		return 0, core.NewStateError(path, fmt.Errorf("%w: invalid job id counter %q", core.ErrCorruptState, data))
	}
	return n, nil
}

// Dir returns the instance directory.
func (tx *Tx) Dir() string {
	return tx.dir
}

// Bitmap returns the slot bitmap. Changes to it are persisted on commit.
func (tx *Tx) Bitmap() *slot.Bitmap {
	return tx.bitmap
}

// Jobs returns the queued jobs in submission order.
func (tx *Tx) Jobs() []*core.Job {
	return append([]*core.Job(nil), tx.jobs...)
}

// Find returns the queued job with the given id, or nil.
func (tx *Tx) Find(id int) *core.Job {
	job, _ := lo.Find(tx.jobs, func(j *core.Job) bool { return j.ID == id })
	return job
}

// NextID returns the id the next appended job will receive.
func (tx *Tx) NextID() int {
	return tx.lastID + 1
}

// Append assigns the next id to job, queues it as pending, and returns the
// id.
func (tx *Tx) Append(job *core.Job) int {
	tx.lastID++
	job.ID = tx.lastID
	job.Status = core.StatusPending
	job.Assigned = nil
	job.PID = 0
	tx.jobs = append(tx.jobs, job)
	return job.ID
}

// Remove drops the job with the given id, keeping the order of the others.
// It reports whether the job was queued.
func (tx *Tx) Remove(id int) bool {
	n := len(tx.jobs)
	tx.jobs = lo.Reject(tx.jobs, func(j *core.Job, _ int) bool { return j.ID == id })
	return len(tx.jobs) != n
}

// Put replaces the queued job that has the same id as job.
func (tx *Tx) Put(job *core.Job) error {
	_, idx, ok := lo.FindIndexOf(tx.jobs, func(j *core.Job) bool { return j.ID == job.ID })
	if !ok {
		return fmt.Errorf("%w: %d", core.ErrJobNotFound, job.ID)
	}
	tx.jobs[idx] = job
	return nil
}

func (tx *Tx) commit(ctx context.Context) error {
	if tx.lastID != tx.origLastID {
		if err := tx.write(ctx, CounterFile, strconv.Itoa(tx.lastID)+"\n"); err != nil {
			return err
		}
	}
	if data := tx.bitmap.String(); data != tx.origBitmap {
		if err := tx.write(ctx, BitmapFile, data); err != nil {
			return err
		}
	}
	if data := encodeJobs(tx.jobs); data != tx.origJobs {
		if err := tx.write(ctx, QueueFile, data); err != nil {
			return err
		}
	}
	return nil
}

func (tx *Tx) write(ctx context.Context, name, data string) error {
	path := filepath.Join(tx.dir, name)
	if err := fileutil.WriteFileAtomic(path, []byte(data)); err != nil {
		logger.Error(ctx, "Failed to write state file", tag.File(path), tag.Error(err))
		return fmt.Errorf("failed to persist %s: %w", name, err)
	}
	return nil
}
