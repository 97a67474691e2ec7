package forge

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is a compile job's position in its lifecycle. Transitions only
// move forward; Succeeded and Failed are terminal.
type Status int

const (
	StatusQueued Status = iota
	StatusPreparing
	StatusInstalling
	StatusBuilding
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusPreparing:
		return "preparing"
	case StatusInstalling:
		return "installing"
	case StatusBuilding:
		return "building"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Job tracks one compile request from arrival to a terminal state.
type Job struct {
	ID      string
	Status  Status
	Started time.Time
}

func newJob() *Job {
	return &Job{
		ID:      uuid.NewString(),
		Status:  StatusQueued,
		Started: time.Now(),
	}
}

// advance moves the job to next. A backward or post-terminal move is a
// coordinator bug and panics rather than corrupting the lifecycle.
func (j *Job) advance(next Status) {
	if j.Status.Terminal() || next <= j.Status {
		panic(fmt.Sprintf("illegal job transition %s -> %s", j.Status, next))
	}

	j.Status = next
}

// fail marks the job terminally failed from any non-terminal state.
func (j *Job) fail() {
	if !j.Status.Terminal() {
		j.Status = StatusFailed
	}
}
