package rest

import (
	"time"
)

type SubmitRunRequest struct {
	Job     string            `json:"job"`
	Params  map[string]string `json:"params,omitempty"`
	Records []string          `json:"records,omitempty"`
	Inputs  []string          `json:"inputs,omitempty"` // Glob patterns of local files
	Engine  *EngineConfig     `json:"engine,omitempty"`
}

type EngineConfig struct {
	Mode    string `json:"mode"` // "sequential" or "parallel"
	Workers int    `json:"workers,omitempty"`
}

type GetRunResponse struct {
	RunID      string            `json:"run_id"`
	Job        string            `json:"job"`
	Params     map[string]string `json:"params,omitempty"`
	Status     string            `json:"status"`
	Engine     EngineConfig      `json:"engine"`
	NumRecords int               `json:"num_records"`
	Results    []ResultInfo      `json:"results"`
	Error      *string           `json:"error,omitempty"`
	Timestamps TimestampsInfo    `json:"timestamps"`
	DurationMS int64             `json:"duration_ms"`
	Links      Links             `json:"links"`
}

type ResultInfo struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type TimestampsInfo struct {
	Submitted time.Time  `json:"submitted"`
	Started   *time.Time `json:"started"`
	Completed *time.Time `json:"completed"`
}

type Links struct {
	Self string `json:"self"`
}

type ListRunsResponse struct {
	Runs       []RunSummary `json:"runs"`
	Total      int          `json:"total"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
	NextOffset *int         `json:"next_offset,omitempty"`
}

type RunSummary struct {
	RunID       string     `json:"run_id"`
	Job         string     `json:"job"`
	Status      string     `json:"status"`
	NumKeys     int        `json:"num_keys"`
	SubmittedAt time.Time  `json:"submitted_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type ListJobsResponse struct {
	Jobs []JobInfo `json:"jobs"`
}

type JobInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
