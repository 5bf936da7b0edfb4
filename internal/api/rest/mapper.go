package rest

import (
	"fmt"
	"strings"

	"github.com/nemanja-m/memr/internal/runner"
	"github.com/nemanja-m/memr/pkg/local"
)

// ToRequest converts the API payload into a runner request, filling engine settings the
// client left out from defaults.
func (req *SubmitRunRequest) ToRequest(defaults local.Config) runner.Request {
	engine := defaults
	if req.Engine != nil {
		if req.Engine.Mode != "" {
			engine.Mode = local.Mode(strings.ToLower(req.Engine.Mode))
		}
		if req.Engine.Workers != 0 {
			engine.Workers = req.Engine.Workers
		}
	}

	return runner.Request{
		Job:     req.Job,
		Params:  req.Params,
		Records: req.Records,
		Inputs:  req.Inputs,
		Engine:  engine,
	}
}

func ToGetRunResponse(run *runner.Run) GetRunResponse {
	results := make([]ResultInfo, 0, len(run.Results))
	for _, r := range run.Results {
		results = append(results, ResultInfo{Key: r.Key, Value: r.Value})
	}

	return GetRunResponse{
		RunID:  run.ID.String(),
		Job:    run.Job,
		Params: run.Params,
		Status: string(run.Status),
		Engine: EngineConfig{
			Mode:    string(run.Mode),
			Workers: run.Workers,
		},
		NumRecords: run.NumRecords,
		Results:    results,
		Error:      run.Error,
		Timestamps: TimestampsInfo{
			Submitted: run.SubmittedAt,
			Started:   run.StartedAt,
			Completed: run.CompletedAt,
		},
		DurationMS: run.Duration().Milliseconds(),
		Links: Links{
			Self: fmt.Sprintf("/api/runs/%s", run.ID),
		},
	}
}

func ToRunSummary(run *runner.Run) RunSummary {
	return RunSummary{
		RunID:       run.ID.String(),
		Job:         run.Job,
		Status:      string(run.Status),
		NumKeys:     len(run.Results),
		SubmittedAt: run.SubmittedAt,
		CompletedAt: run.CompletedAt,
	}
}
