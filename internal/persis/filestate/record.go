package filestate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/JaneliaSciComp/aitch/internal/cmn/stringutil"
	"github.com/JaneliaSciComp/aitch/internal/core"
	"github.com/JaneliaSciComp/aitch/internal/core/slot"
)

// recordFields names the lines of one job record, in file order. The job
// stack file starts with a record holding exactly these names.
var recordFields = []string{
	"id",
	"request",
	"command",
	"env",
	"stdout",
	"stderr",
	"append",
	"dependencies",
	"assigned",
	"pid",
}

var recordLen = len(recordFields)

// encodeJobs serializes the header and every job, one field per line.
func encodeJobs(jobs []*core.Job) string {
	var sb strings.Builder
	for _, f := range recordFields {
		sb.WriteString(f)
		sb.WriteByte('\n')
	}
	for _, job := range jobs {
		for _, line := range encodeRecord(job) {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func encodeRecord(job *core.Job) []string {
	var assigned, pid string
	if job.IsRunning() {
		assigned = job.Assigned.String()
		pid = strconv.Itoa(job.PID)
	}
	return []string{
		strconv.Itoa(job.ID),
		stringutil.JoinInts(job.Request, ","),
		job.Command,
		strings.Join(lo.Map(job.Env, func(kv stringutil.KeyValue, _ int) string { return kv.String() }), " "),
		job.Stdout,
		job.Stderr,
		strconv.FormatBool(job.Append),
		stringutil.JoinInts(job.Dependencies, " "),
		assigned,
		pid,
	}
}

// decodeJobs parses a job stack file for an instance with dims dimensions.
func decodeJobs(data string, dims int) ([]*core.Job, error) {
	if !strings.HasSuffix(data, "\n") {
		return nil, fmt.Errorf("%w: job stack is truncated", core.ErrCorruptState)
	}
	lines := strings.Split(strings.TrimSuffix(data, "\n"), "\n")
	if len(lines) < recordLen || len(lines)%recordLen != 0 {
		return nil, fmt.Errorf("%w: job stack has %d lines, not a multiple of %d", core.ErrCorruptState, len(lines), recordLen)
	}
	for i, f := range recordFields {
		if lines[i] != f {
			return nil, fmt.Errorf("%w: unexpected header field %q", core.ErrCorruptState, lines[i])
		}
	}

	jobs := make([]*core.Job, 0, len(lines)/recordLen-1)
	for off := recordLen; off < len(lines); off += recordLen {
		job, err := decodeRecord(lines[off:off+recordLen], dims)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", core.ErrCorruptState, off/recordLen, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func decodeRecord(lines []string, dims int) (*core.Job, error) {
	id, err := strconv.Atoi(lines[0])
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid id %q", lines[0])
	}
	request, err := stringutil.SplitInts(lines[1], ",")
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	if len(request) != dims {
		return nil, fmt.Errorf("request %q does not have %d dimensions", lines[1], dims)
	}
	appendMode, err := strconv.ParseBool(lines[6])
	if err != nil {
		return nil, fmt.Errorf("invalid append flag %q", lines[6])
	}
	deps, err := stringutil.SplitInts(lines[7], " ")
	if err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}

	job := &core.Job{
		ID:           id,
		Request:      request,
		Command:      lines[2],
		Env:          lo.Map(strings.Fields(lines[3]), func(s string, _ int) stringutil.KeyValue { return stringutil.KeyValue(s) }),
		Stdout:       lines[4],
		Stderr:       lines[5],
		Append:       appendMode,
		Dependencies: deps,
		Status:       core.StatusPending,
	}

	if lines[9] == "" {
		if lines[8] != "" {
			return nil, fmt.Errorf("job %d has assigned slots but no pid", id)
		}
		return job, nil
	}

	pid, err := strconv.Atoi(lines[9])
	if err != nil || pid <= 0 {
		return nil, fmt.Errorf("invalid pid %q", lines[9])
	}
	alloc, err := slot.ParseAllocation(lines[8], dims)
	if err != nil {
		return nil, err
	}
	job.MarkRunning(alloc, pid)
	return job, nil
}
