package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/nemanja-m/memr/internal/shared/logging"
	"github.com/nemanja-m/memr/pkg/jobs"
	"github.com/nemanja-m/memr/pkg/local"
)

var (
	// ErrInvalidRequest wraps every error detected before a run starts executing.
	ErrInvalidRequest = errors.New("invalid run request")

	ErrInputsDisabled   = errors.New("file inputs are disabled")
	ErrInputOutsideRoot = errors.New("input pattern must be relative to the input root")
)

type Service interface {
	Submit(ctx context.Context, req Request) (*Run, error)
	GetRun(id uuid.UUID) (*Run, error)
	GetRuns(filter RunFilter) ([]*Run, int, error)
}

type service struct {
	store  RunStore
	logger logging.Logger

	confineInputs bool
	inputRoot     string
}

type ServiceOption func(*service)

// WithInputRoot restricts Request.Inputs to relative patterns resolved inside root. An empty
// root rejects every request that carries inputs.
func WithInputRoot(root string) ServiceOption {
	return func(s *service) {
		s.confineInputs = true
		s.inputRoot = root
	}
}

func NewService(store RunStore, logger logging.Logger, opts ...ServiceOption) Service {
	s := &service{
		store:  store,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates the request, then executes the run synchronously. Invalid requests are
// rejected without storing a run. Execution failures are stored on the FAILED run, which is
// returned together with the error.
func (s *service) Submit(ctx context.Context, req Request) (*Run, error) {
	job, engine, err := s.prepare(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	records, err := s.loadRecords(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	run := &Run{
		ID:          uuid.New(),
		Job:         job.Name(),
		Params:      req.Params,
		Mode:        engine.Mode,
		Workers:     engine.Workers,
		Status:      RunStatusPending,
		NumRecords:  len(records),
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.store.SaveRun(run); err != nil {
		return nil, err
	}

	s.logger.Info("Starting run",
		"run_id", run.ID.String(),
		"job", run.Job,
		"mode", string(run.Mode),
		"workers", run.Workers,
		"records", run.NumRecords,
	)

	run.Status = RunStatusRunning
	run.StartedAt = ptrTimeNow()
	if err := s.store.UpdateRun(run); err != nil {
		return nil, err
	}

	results, runErr := job.Run(ctx, records, engine)
	run.CompletedAt = ptrTimeNow()
	if runErr != nil {
		run.Status = RunStatusFailed
		run.Error = ptrString(runErr.Error())
	} else {
		run.Status = RunStatusCompleted
		run.Results = results
	}
	if err := s.store.UpdateRun(run); err != nil {
		return nil, err
	}

	if runErr != nil {
		s.logger.Error("Run failed",
			"run_id", run.ID.String(),
			"job", run.Job,
			"duration_ms", run.Duration().Milliseconds(),
			"error", runErr,
		)
		return run, runErr
	}

	s.logger.Info("Run completed",
		"run_id", run.ID.String(),
		"job", run.Job,
		"keys", len(results),
		"duration_ms", run.Duration().Milliseconds(),
	)
	return run, nil
}

func (s *service) GetRun(id uuid.UUID) (*Run, error) {
	return s.store.GetRunByID(id)
}

func (s *service) GetRuns(filter RunFilter) ([]*Run, int, error) {
	return s.store.GetRuns(filter)
}

func (s *service) prepare(req Request) (jobs.Job, local.Config, error) {
	engine := req.Engine
	if engine.Mode == "" {
		engine.Mode = local.ModeParallel
	}
	mode, err := local.ParseMode(string(engine.Mode))
	if err != nil {
		return nil, engine, err
	}
	engine.Mode = mode
	if engine.Workers < 0 {
		return nil, engine, fmt.Errorf("%w: got %d", local.ErrInvalidWorkers, engine.Workers)
	}

	job, err := jobs.New(req.Job)
	if err != nil {
		return nil, engine, err
	}
	if err := job.Configure(req.Params); err != nil {
		return nil, engine, err
	}
	if err := job.Validate(); err != nil {
		return nil, engine, err
	}
	return job, engine, nil
}

func (s *service) loadRecords(req Request) ([]string, error) {
	records := append([]string(nil), req.Records...)
	if len(req.Inputs) > 0 {
		lines, err := s.readInputs(req.Inputs)
		if err != nil {
			return nil, err
		}
		records = append(records, lines...)
	}
	if len(records) == 0 {
		return nil, local.ErrNoRecords
	}
	return records, nil
}

func (s *service) readInputs(patterns []string) ([]string, error) {
	if !s.confineInputs {
		return local.ReadInput(patterns...)
	}
	if s.inputRoot == "" {
		return nil, ErrInputsDisabled
	}

	relative := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if !filepath.IsLocal(pattern) {
			return nil, fmt.Errorf("%w: %q", ErrInputOutsideRoot, pattern)
		}
		relative = append(relative, filepath.ToSlash(pattern))
	}

	root, err := os.OpenRoot(s.inputRoot)
	if err != nil {
		return nil, fmt.Errorf("open input root: %w", err)
	}
	defer root.Close()

	return local.ReadInputFS(root.FS(), relative...)
}
