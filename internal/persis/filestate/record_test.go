package filestate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaneliaSciComp/aitch/internal/cmn/stringutil"
	"github.com/JaneliaSciComp/aitch/internal/core"
	"github.com/JaneliaSciComp/aitch/internal/core/slot"
)

func TestEncodeJobs(t *testing.T) {
	t.Run("HeaderOnly", func(t *testing.T) {
		data := encodeJobs(nil)
		assert.Equal(t, strings.Join(recordFields, "\n")+"\n", data)
	})

	t.Run("EmptyFieldsAreKept", func(t *testing.T) {
		data := encodeJobs([]*core.Job{{ID: 1, Request: []int{1}, Command: "true"}})
		lines := strings.Split(strings.TrimSuffix(data, "\n"), "\n")
		require.Len(t, lines, 2*recordLen)
		assert.Equal(t, []string{"1", "1", "true", "", "", "", "false", "", "", ""}, lines[recordLen:])
	})

	t.Run("RunningJob", func(t *testing.T) {
		job := &core.Job{
			ID:           7,
			Request:      []int{2, 1},
			Command:      "sh -c 'echo hi'",
			Env:          []stringutil.KeyValue{"A=1", "B=x"},
			Stdout:       "/tmp/o",
			Stderr:       "/tmp/o",
			Append:       true,
			Dependencies: []int{3, 5},
		}
		job.MarkRunning(slot.Allocation{{0, 2}, {1}}, 4242)

		lines := encodeRecord(job)
		assert.Equal(t, []string{
			"7", "2,1", "sh -c 'echo hi'", "A=1 B=x", "/tmp/o", "/tmp/o", "true", "3 5", "0,2;1", "4242",
		}, lines)
	})
}

func TestDecodeJobs(t *testing.T) {
	pending := &core.Job{
		ID:           1,
		Request:      []int{1, 0},
		Command:      "sleep 1",
		Env:          []stringutil.KeyValue{"K=V"},
		Dependencies: []int{},
	}
	running := &core.Job{
		ID:           2,
		Request:      []int{2, 1},
		Command:      "echo",
		Env:          []stringutil.KeyValue{},
		Stdout:       "out",
		Stderr:       "err",
		Dependencies: []int{1},
	}
	running.MarkRunning(slot.Allocation{{0, 1}, {0}}, 99)

	jobs, err := decodeJobs(encodeJobs([]*core.Job{pending, running}), 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, pending.Command, jobs[0].Command)
	assert.Equal(t, core.StatusPending, jobs[0].Status)
	assert.Zero(t, jobs[0].PID)
	assert.Nil(t, jobs[0].Assigned)
	assert.Equal(t, pending.Env, jobs[0].Env)

	assert.Equal(t, core.StatusRunning, jobs[1].Status)
	assert.Equal(t, 99, jobs[1].PID)
	assert.Equal(t, running.Assigned, jobs[1].Assigned)
	assert.Equal(t, []int{1}, jobs[1].Dependencies)
	assert.Equal(t, "out", jobs[1].Stdout)
	assert.Equal(t, "err", jobs[1].Stderr)
}

func TestDecodeJobs_RunningWithEmptyAllocation(t *testing.T) {
	job := &core.Job{ID: 1, Request: []int{0}, Command: "true"}
	job.MarkRunning(slot.Allocation{{}}, 10)

	jobs, err := decodeJobs(encodeJobs([]*core.Job{job}), 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.True(t, jobs[0].IsRunning())
	assert.Equal(t, slot.Allocation{{}}, jobs[0].Assigned)
}

func TestDecodeJobs_Corrupt(t *testing.T) {
	valid := encodeJobs([]*core.Job{{ID: 1, Request: []int{1}, Command: "true"}})

	tests := []struct {
		name string
		data string
	}{
		{"Empty", ""},
		{"MissingTrailingNewline", strings.TrimSuffix(valid, "\n")},
		{"ShortRecord", valid + "2\n1\n"},
		{"BadHeader", strings.Replace(valid, "command", "cmd", 1)},
		{"BadID", strings.Replace(valid, "\n1\n1\ntrue", "\nx\n1\ntrue", 1)},
		{"BadRequest", strings.Replace(valid, "\n1\n1\ntrue", "\n1\na\ntrue", 1)},
		{"WrongDimensions", strings.Replace(valid, "\n1\n1\ntrue", "\n1\n1,1\ntrue", 1)},
		{"BadAppend", strings.Replace(valid, "\nfalse\n", "\nmaybe\n", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeJobs(tt.data, 1)
			require.ErrorIs(t, err, core.ErrCorruptState)
		})
	}
}
