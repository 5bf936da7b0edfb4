package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/nemanja-m/memr/internal/runner"
	"github.com/nemanja-m/memr/internal/shared/config"
	"github.com/nemanja-m/memr/internal/shared/logging"
	"github.com/nemanja-m/memr/pkg/jobs"
	"github.com/nemanja-m/memr/pkg/local"
)

const (
	defaultListLimit    = 10
	defaultMaxBodyBytes = 8 << 20
)

type API struct {
	service      runner.Service
	engine       local.Config
	logger       logging.Logger
	maxBodyBytes int64
}

func NewAPI(service runner.Service, engine local.Config, logger logging.Logger) *API {
	return &API{
		service:      service,
		engine:       engine,
		logger:       logger,
		maxBodyBytes: defaultMaxBodyBytes,
	}
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/runs", a.submitRun)
	mux.HandleFunc("GET /api/runs", a.listRuns)
	mux.HandleFunc("GET /api/runs/{id}", a.getRun)
	mux.HandleFunc("GET /api/jobs", a.listJobs)
}

// submitRun handles POST /api/runs. The run executes before the response is written.
func (a *API) submitRun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxBodyBytes)

	var req SubmitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large",
				fmt.Sprintf("limit is %d bytes", tooLarge.Limit))
			return
		}
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Job) == "" {
		respondError(w, http.StatusBadRequest, "validation failed", "job is required")
		return
	}

	run, err := a.service.Submit(r.Context(), req.ToRequest(a.engine))
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, ToGetRunResponse(run))
	case errors.Is(err, runner.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, "validation failed", err.Error())
	case run != nil:
		respondJSON(w, http.StatusUnprocessableEntity, ToGetRunResponse(run))
	default:
		a.logger.Error("Failed to submit run", "job", req.Job, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to submit run", err.Error())
	}
}

// getRun handles GET /api/runs/{id}
func (a *API) getRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid run ID", err.Error())
		return
	}

	run, err := a.service.GetRun(id)
	if err != nil {
		if errors.Is(err, runner.ErrRunNotFound) {
			respondError(w, http.StatusNotFound, "run not found", "")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get run", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, ToGetRunResponse(run))
}

// listRuns handles GET /api/runs with filters and pagination
func (a *API) listRuns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := runner.RunFilter{
		Job:    query.Get("job"),
		Limit:  defaultListLimit,
		Offset: 0,
	}
	if s := query.Get("status"); s != "" {
		status := runner.RunStatus(strings.ToUpper(s))
		filter.Status = &status
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			filter.Limit = l
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	runs, total, err := a.service.GetRuns(filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list runs", err.Error())
		return
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, ToRunSummary(run))
	}

	var nextOffset *int
	if end := filter.Offset + len(runs); end < total {
		nextOffset = &end
	}

	respondJSON(w, http.StatusOK, ListRunsResponse{
		Runs:       summaries,
		Total:      total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
		NextOffset: nextOffset,
	})
}

// listJobs handles GET /api/jobs
func (a *API) listJobs(w http.ResponseWriter, _ *http.Request) {
	names := jobs.List()
	infos := make([]JobInfo, 0, len(names))
	for _, name := range names {
		job, err := jobs.New(name)
		if err != nil {
			continue
		}
		infos = append(infos, JobInfo{Name: name, Description: job.Describe()})
	}
	respondJSON(w, http.StatusOK, ListJobsResponse{Jobs: infos})
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, statusCode int, error string, message string) {
	resp := ErrorResponse{
		Error:   error,
		Message: message,
		Code:    statusCode,
	}
	respondJSON(w, statusCode, resp)
}

func NewServer(cfg config.RESTConfig, service runner.Service, engine local.Config, logger logging.Logger) *http.Server {
	api := NewAPI(service, engine, logger)
	if cfg.MaxBodyBytes > 0 {
		api.maxBodyBytes = cfg.MaxBodyBytes
	}
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	handler := ChainMiddleware(
		mux,
		RequestIDMiddleware,
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
	)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
