package runner

import (
	"cmp"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
)

var ErrRunNotFound = errors.New("run not found")

type RunStore interface {
	SaveRun(run *Run) error
	UpdateRun(run *Run) error
	GetRunByID(id uuid.UUID) (*Run, error)
	GetRuns(filter RunFilter) ([]*Run, int, error)
}

type InMemoryRunStore struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*Run
}

func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{
		runs: make(map[uuid.UUID]*Run),
	}
}

func (s *InMemoryRunStore) SaveRun(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return errors.New("run already exists: " + run.ID.String())
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *InMemoryRunStore) UpdateRun(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; !exists {
		return ErrRunNotFound
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *InMemoryRunStore) GetRunByID(id uuid.UUID) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, exists := s.runs[id]
	if !exists {
		return nil, ErrRunNotFound
	}
	return cloneRun(run), nil
}

// GetRuns returns the runs matching filter ordered by submission time, newest first, together
// with the number of matches before pagination.
func (s *InMemoryRunStore) GetRuns(filter RunFilter) ([]*Run, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*Run, 0, len(s.runs))
	for _, run := range s.runs {
		if filter.Status != nil && run.Status != *filter.Status {
			continue
		}
		if filter.Job != "" && run.Job != filter.Job {
			continue
		}
		matched = append(matched, run)
	}
	slices.SortFunc(matched, func(a, b *Run) int {
		if c := b.SubmittedAt.Compare(a.SubmittedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})

	total := len(matched)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}

	page := make([]*Run, 0, end-start)
	for _, run := range matched[start:end] {
		page = append(page, cloneRun(run))
	}
	return page, total, nil
}

func cloneRun(run *Run) *Run {
	clone := *run
	clone.Params = maps.Clone(run.Params)
	clone.Results = slices.Clone(run.Results)
	return &clone
}
