package core

// Status is the dispatch state of a queued job. Finished jobs are removed
// from the queue, so there is no terminal state.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
)

// String returns the lowercase token used in listings and logs.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	default:
		return "unknown"
	}
}
