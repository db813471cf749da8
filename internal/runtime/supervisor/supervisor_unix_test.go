//go:build !windows

package supervisor_test

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaneliaSciComp/aitch/internal/cmn/stringutil"
	"github.com/JaneliaSciComp/aitch/internal/core"
	"github.com/JaneliaSciComp/aitch/internal/core/slot"
	"github.com/JaneliaSciComp/aitch/internal/runtime/supervisor"
)

func spawnAndWait(t *testing.T, sv *supervisor.Supervisor, job *core.Job, alloc slot.Allocation) {
	t.Helper()
	p, err := sv.Spawn(context.Background(), job, alloc)
	require.NoError(t, err)
	require.NoError(t, p.Wait())
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestSpawn_SlotEnvironment(t *testing.T) {
	dir := t.TempDir()
	sv := supervisor.New(supervisor.WithBaseEnv([]string{"PATH=" + os.Getenv("PATH")}))
	job := &core.Job{
		ID:      1,
		Command: `sh -c 'echo "$QUEUE0|$QUEUE1|$GREETING"'`,
		Env:     []stringutil.KeyValue{"GREETING=hi"},
		Stdout:  filepath.Join(dir, "1.out"),
		Stderr:  filepath.Join(dir, "1.err"),
	}

	spawnAndWait(t, sv, job, slot.Allocation{{1, 3}, {0}})

	assert.Equal(t, "1,3|0|hi\n", readFile(t, job.Stdout))
	assert.Empty(t, readFile(t, job.Stderr))
}

func TestSpawn_SharedOutputFile(t *testing.T) {
	dir := t.TempDir()
	sv := supervisor.New()
	out := filepath.Join(dir, "both.log")
	job := &core.Job{
		ID:      1,
		Command: `sh -c 'echo one; echo two >&2; echo three'`,
		Stdout:  out,
		Stderr:  out,
	}

	spawnAndWait(t, sv, job, slot.Allocation{{0}})

	assert.Equal(t, "one\ntwo\nthree\n", readFile(t, out))
}

func TestSpawn_AppendAndTruncate(t *testing.T) {
	dir := t.TempDir()
	sv := supervisor.New()
	out := filepath.Join(dir, "1.out")
	require.NoError(t, os.WriteFile(out, []byte("previous\n"), 0o600))

	job := &core.Job{ID: 1, Command: "echo next", Stdout: out, Stderr: filepath.Join(dir, "1.err"), Append: true}
	spawnAndWait(t, sv, job, slot.Allocation{{0}})
	assert.Equal(t, "previous\nnext\n", readFile(t, out))

	job.Append = false
	spawnAndWait(t, sv, job, slot.Allocation{{0}})
	assert.Equal(t, "next\n", readFile(t, out))
}

func TestSpawn_Failure(t *testing.T) {
	dir := t.TempDir()
	sv := supervisor.New()

	t.Run("MissingExecutable", func(t *testing.T) {
		job := &core.Job{ID: 1, Command: "/nonexistent/binary --flag", Stdout: filepath.Join(dir, "1.out")}
		_, err := sv.Spawn(context.Background(), job, slot.Allocation{{0}})
		require.ErrorIs(t, err, core.ErrSpawnFailure)
	})

	t.Run("UnwritableOutput", func(t *testing.T) {
		job := &core.Job{ID: 2, Command: "true", Stdout: filepath.Join(dir, "missing", "2.out")}
		_, err := sv.Spawn(context.Background(), job, slot.Allocation{{0}})
		require.ErrorIs(t, err, core.ErrSpawnFailure)
	})

	t.Run("UnbalancedQuote", func(t *testing.T) {
		job := &core.Job{ID: 3, Command: `echo "oops`}
		_, err := sv.Spawn(context.Background(), job, slot.Allocation{{0}})
		require.ErrorIs(t, err, core.ErrSpawnFailure)
	})

	t.Run("ShellOperatorInStoredCommand", func(t *testing.T) {
		out := filepath.Join(dir, "4.out")
		job := &core.Job{ID: 4, Command: "echo a; touch " + filepath.Join(dir, "never"), Stdout: out}
		_, err := sv.Spawn(context.Background(), job, slot.Allocation{{0}})
		require.ErrorIs(t, err, core.ErrSpawnFailure)
		require.ErrorIs(t, err, core.ErrShellOperator)
		assert.NoFileExists(t, out)
	})
}

func TestAliveAndSignal(t *testing.T) {
	ctx := context.Background()
	sv := supervisor.New()
	dir := t.TempDir()

	job := &core.Job{ID: 1, Command: "sleep 30", Stdout: filepath.Join(dir, "1.out"), Stderr: filepath.Join(dir, "1.err")}
	p, err := sv.Spawn(ctx, job, slot.Allocation{{0}})
	require.NoError(t, err)

	alive, err := supervisor.Alive(ctx, p.Pid())
	require.NoError(t, err)
	assert.True(t, alive)

	require.NoError(t, supervisor.Signal(ctx, p.Pid(), syscall.SIGTERM))

	done := make(chan error, 1)
	go func() { done <- p.Wait() }()
	select {
	case err := <-done:
		require.Error(t, err, "a terminated process reports a non-zero exit")
	case <-time.After(10 * time.Second):
		t.Fatal("process did not exit after SIGTERM")
	}

	alive, err = supervisor.Alive(ctx, p.Pid())
	require.NoError(t, err)
	assert.False(t, alive)

	err = supervisor.Signal(ctx, p.Pid(), syscall.SIGTERM)
	require.ErrorIs(t, err, core.ErrStaleProcess)
}
