package jobs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/nemanja-m/memr/pkg/local"
)

var ErrUnknownJob = errors.New("job not found")

// Job is a named, configurable map/reduce pair that can run itself on an engine.
type Job interface {
	Name() string
	Describe() string

	Configure(config map[string]string) error
	Validate() error

	Run(ctx context.Context, records []string, config local.Config) ([]Result, error)
}

type Factory func() Job

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

func Register(name string, factory Factory) error {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[name]; exists {
		return fmt.Errorf("job already registered: %s", name)
	}
	registry[name] = factory
	return nil
}

// New returns a fresh, unconfigured instance of the named job.
func New(name string) (Job, error) {
	mu.RLock()
	factory, exists := registry[name]
	mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return factory(), nil
}

func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func mustRegister(name string, factory Factory) {
	if err := Register(name, factory); err != nil {
		panic(err)
	}
}
