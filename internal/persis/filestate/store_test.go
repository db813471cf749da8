package filestate_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaneliaSciComp/aitch/internal/cmn/dirlock"
	"github.com/JaneliaSciComp/aitch/internal/core"
	"github.com/JaneliaSciComp/aitch/internal/persis/filestate"
)

func newStore(t *testing.T) *filestate.Store {
	t.Helper()
	return filestate.New(t.TempDir(), filestate.WithLockRetryInterval(5*time.Millisecond))
}

func createInstance(t *testing.T, store *filestate.Store, name string, totals ...int) *filestate.Instance {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, name, totals))
	inst, err := store.Open(ctx, name)
	require.NoError(t, err)
	return inst
}

func TestStore_Create(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.Create(ctx, "default", []int{4, 2}))

	dir := store.Dir("default")
	for _, name := range []string{dirlock.LockFileName, filestate.BitmapFile, filestate.QueueFile, filestate.CounterFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	bitmap, err := os.ReadFile(filepath.Join(dir, filestate.BitmapFile))
	require.NoError(t, err)
	assert.Equal(t, "0000\n00\n", string(bitmap))

	counter, err := os.ReadFile(filepath.Join(dir, filestate.CounterFile))
	require.NoError(t, err)
	assert.Equal(t, "0\n", string(counter))

	t.Run("AlreadyRunningSameSlots", func(t *testing.T) {
		err := store.Create(ctx, "default", []int{4, 2})
		require.ErrorIs(t, err, core.ErrAlreadyRunning)
		assert.Contains(t, err.Error(), "has the requested slots")
	})

	t.Run("AlreadyRunningDifferentSlots", func(t *testing.T) {
		err := store.Create(ctx, "default", []int{8})
		require.ErrorIs(t, err, core.ErrAlreadyRunning)
		assert.Contains(t, err.Error(), "different slots")
	})

	t.Run("InvalidName", func(t *testing.T) {
		for _, name := range []string{"", ".", "..", "a/b", ".hidden"} {
			require.ErrorIs(t, store.Create(ctx, name, []int{1}), core.ErrInvalidInstanceName, name)
		}
	})

	t.Run("NoDimensions", func(t *testing.T) {
		require.Error(t, store.Create(ctx, "empty", nil))
	})
}

func TestStore_OpenNotRunning(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.Open(ctx, "missing")
	require.ErrorIs(t, err, core.ErrNotRunning)

	createInstance(t, store, "partial", 1)
	require.NoError(t, os.Remove(filepath.Join(store.Dir("partial"), filestate.QueueFile)))

	_, err = store.Open(ctx, "partial")
	require.ErrorIs(t, err, core.ErrNotRunning)
	assert.Contains(t, err.Error(), core.RecoveryHint)
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	createInstance(t, store, "b", 1)
	createInstance(t, store, "a", 1)

	names, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestInstance_AppendAssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	inst := createInstance(t, store, "default", 2)

	var ids []int
	for range 3 {
		require.NoError(t, inst.Update(ctx, func(tx *filestate.Tx) error {
			ids = append(ids, tx.Append(&core.Job{Request: []int{1}, Command: "true"}))
			return nil
		}))
	}
	assert.Equal(t, []int{1, 2, 3}, ids)

	// removing the newest job does not make its id available again
	require.NoError(t, inst.Update(ctx, func(tx *filestate.Tx) error {
		require.True(t, tx.Remove(3))
		return nil
	}))
	require.NoError(t, inst.Update(ctx, func(tx *filestate.Tx) error {
		assert.Equal(t, 4, tx.Append(&core.Job{Request: []int{1}, Command: "true"}))
		return nil
	}))

	counter, err := os.ReadFile(filepath.Join(inst.Dir(), filestate.CounterFile))
	require.NoError(t, err)
	assert.Equal(t, "4\n", string(counter))
}

func TestInstance_RemovePreservesOrder(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	inst := createInstance(t, store, "default", 2)

	require.NoError(t, inst.Update(ctx, func(tx *filestate.Tx) error {
		for range 4 {
			tx.Append(&core.Job{Request: []int{1}, Command: "true"})
		}
		return nil
	}))
	require.NoError(t, inst.Update(ctx, func(tx *filestate.Tx) error {
		assert.True(t, tx.Remove(2))
		assert.False(t, tx.Remove(42))
		return nil
	}))

	require.NoError(t, inst.View(ctx, func(tx *filestate.Tx) error {
		var ids []int
		for _, j := range tx.Jobs() {
			ids = append(ids, j.ID)
		}
		assert.Equal(t, []int{1, 3, 4}, ids)
		assert.Nil(t, tx.Find(2))
		assert.NotNil(t, tx.Find(3))
		return nil
	}))
}

func TestInstance_UpdatePersistsDispatch(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	inst := createInstance(t, store, "default", 3)

	require.NoError(t, inst.Update(ctx, func(tx *filestate.Tx) error {
		tx.Append(&core.Job{Request: []int{2}, Command: "sleep 1"})
		return nil
	}))
	require.NoError(t, inst.Update(ctx, func(tx *filestate.Tx) error {
		job := tx.Find(1)
		alloc, ok := tx.Bitmap().FindAllocation(job.Request)
		require.True(t, ok)
		require.NoError(t, tx.Bitmap().Commit(alloc))
		job.MarkRunning(alloc, 1234)
		return tx.Put(job)
	}))

	bitmap, err := os.ReadFile(filepath.Join(inst.Dir(), filestate.BitmapFile))
	require.NoError(t, err)
	assert.Equal(t, "110\n", string(bitmap))

	require.NoError(t, inst.View(ctx, func(tx *filestate.Tx) error {
		job := tx.Find(1)
		require.NotNil(t, job)
		assert.True(t, job.IsRunning())
		assert.Equal(t, 1234, job.PID)
		return nil
	}))
}

func TestInstance_FailedUpdateWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	inst := createInstance(t, store, "default", 1)

	err := inst.Update(ctx, func(tx *filestate.Tx) error {
		tx.Append(&core.Job{Request: []int{1}, Command: "true"})
		return core.ErrInvalidJob
	})
	require.ErrorIs(t, err, core.ErrInvalidJob)

	require.NoError(t, inst.View(ctx, func(tx *filestate.Tx) error {
		assert.Empty(t, tx.Jobs())
		assert.Equal(t, 1, tx.NextID())
		return nil
	}))
}

func TestInstance_CorruptState(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	t.Run("Bitmap", func(t *testing.T) {
		inst := createInstance(t, store, "bitmap", 2)
		require.NoError(t, os.WriteFile(filepath.Join(inst.Dir(), filestate.BitmapFile), []byte("0x\n"), 0o600))

		err := inst.View(ctx, func(*filestate.Tx) error { return nil })
		require.ErrorIs(t, err, core.ErrCorruptState)
		assert.Contains(t, err.Error(), core.RecoveryHint)
	})

	t.Run("Queue", func(t *testing.T) {
		inst := createInstance(t, store, "queue", 2)
		path := filepath.Join(inst.Dir(), filestate.QueueFile)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
		require.NoError(t, err)
		_, err = f.WriteString("1\n1\n")
		require.NoError(t, err)
		require.NoError(t, f.Close())

		err = inst.Update(ctx, func(*filestate.Tx) error { return nil })
		require.ErrorIs(t, err, core.ErrCorruptState)
	})

	t.Run("Counter", func(t *testing.T) {
		inst := createInstance(t, store, "counter", 2)
		require.NoError(t, os.WriteFile(filepath.Join(inst.Dir(), filestate.CounterFile), []byte("abc\n"), 0o600))

		err := inst.View(ctx, func(*filestate.Tx) error { return nil })
		require.ErrorIs(t, err, core.ErrCorruptState)
	})

	t.Run("ForceRemove", func(t *testing.T) {
		require.NoError(t, store.ForceRemove(ctx, "bitmap"))
		assert.NoDirExists(t, store.Dir("bitmap"))
	})
}

func TestInstance_Destroy(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	inst := createInstance(t, store, "default", 1)

	err := inst.Destroy(ctx, func(*filestate.Tx) error { return core.ErrJobsOutstanding })
	require.ErrorIs(t, err, core.ErrJobsOutstanding)
	assert.DirExists(t, inst.Dir())

	require.NoError(t, inst.Destroy(ctx, nil))
	assert.NoDirExists(t, inst.Dir())

	err = inst.View(ctx, func(*filestate.Tx) error { return nil })
	require.ErrorIs(t, err, core.ErrNotRunning)
}

func TestInstance_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	inst := createInstance(t, store, "default", 1)

	const workers = 8
	const perWorker = 5

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// each worker uses its own handle, like a separate process would
			h, err := store.Open(ctx, "default")
			if !assert.NoError(t, err) {
				return
			}
			for range perWorker {
				assert.NoError(t, h.Update(ctx, func(tx *filestate.Tx) error {
					tx.Append(&core.Job{Request: []int{1}, Command: "true"})
					return nil
				}))
			}
		}()
	}
	wg.Wait()

	require.NoError(t, inst.View(ctx, func(tx *filestate.Tx) error {
		jobs := tx.Jobs()
		require.Len(t, jobs, workers*perWorker)
		for i, j := range jobs {
			assert.Equal(t, i+1, j.ID)
		}
		return nil
	}))
}
