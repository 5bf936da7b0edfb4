package runner

import (
	"time"

	"github.com/google/uuid"

	"github.com/nemanja-m/memr/pkg/jobs"
	"github.com/nemanja-m/memr/pkg/local"
)

type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Run is a single execution of a registered job.
type Run struct {
	ID      uuid.UUID
	Job     string
	Params  map[string]string
	Mode    local.Mode
	Workers int
	Status  RunStatus

	NumRecords int
	Results    []jobs.Result
	Error      *string

	SubmittedAt time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Duration returns the time between start and completion, or zero while the run is unfinished.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(*r.StartedAt)
}

type RunFilter struct {
	Status *RunStatus
	Job    string
	Limit  int
	Offset int
}

// Request describes a run to execute. Records and Inputs are combined; inline records come
// first.
type Request struct {
	Job     string
	Params  map[string]string
	Records []string
	Inputs  []string
	Engine  local.Config
}

func ptrTimeNow() *time.Time {
	t := time.Now().UTC()
	return &t
}

func ptrString(s string) *string {
	return &s
}
