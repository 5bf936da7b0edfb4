package local

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nemanja-m/memr/pkg/core"
)

var (
	ErrNoRecords      = errors.New("input records cannot be nil or empty")
	ErrNilMapper      = errors.New("mapper cannot be nil")
	ErrNilReducer     = errors.New("reducer cannot be nil")
	ErrInvalidWorkers = errors.New("number of workers must be positive")
)

type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
)

func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeSequential:
		return ModeSequential, nil
	case ModeParallel:
		return ModeParallel, nil
	default:
		return "", fmt.Errorf("unknown execution mode: %q", value)
	}
}

type Config struct {
	Mode Mode
	// Workers bounds the parallel engine. Zero selects DefaultWorkers().
	Workers int
}

// NewEngine builds the engine selected by config.Mode. An empty mode selects the parallel engine.
func NewEngine[K comparable, V any](
	records []string,
	mapper core.Mapper[K, V],
	reducer core.Reducer[K, V],
	config Config,
) (core.Engine[K, V], error) {
	switch config.Mode {
	case ModeSequential:
		engine, err := NewSequentialEngine(records, mapper, reducer)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case ModeParallel, "":
		var opts []ParallelOption
		if config.Workers != 0 {
			opts = append(opts, WithWorkers(config.Workers))
		}
		engine, err := NewParallelEngine(records, mapper, reducer, opts...)
		if err != nil {
			return nil, err
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("unknown execution mode: %q", config.Mode)
	}
}

func validate[K comparable, V any](records []string, mapper core.Mapper[K, V], reducer core.Reducer[K, V]) error {
	if len(records) == 0 {
		return ErrNoRecords
	}
	if mapper == nil {
		return ErrNilMapper
	}
	if f, ok := mapper.(core.MapFunc[K, V]); ok && f == nil {
		return ErrNilMapper
	}
	if reducer == nil {
		return ErrNilReducer
	}
	if f, ok := reducer.(core.ReduceFunc[K, V]); ok && f == nil {
		return ErrNilReducer
	}
	return nil
}

// groups is the shuffle output: values per key plus the order in which keys were first seen.
type groups[K comparable, V any] struct {
	keys   []K
	values map[K][]V
}

func shuffle[K comparable, V any](mapped []core.KeyValue[K, V]) groups[K, V] {
	g := groups[K, V]{values: make(map[K][]V)}
	for _, kv := range mapped {
		values, seen := g.values[kv.Key]
		if !seen {
			g.keys = append(g.keys, kv.Key)
		}
		g.values[kv.Key] = append(values, kv.Value)
	}
	return g
}

// mapRecords applies mapper to records in order. offset is the index of records[0] in the
// engine input and only used for error messages.
func mapRecords[K comparable, V any](
	ctx context.Context,
	mapper core.Mapper[K, V],
	offset int,
	records []string,
) ([]core.KeyValue[K, V], error) {
	var mapped []core.KeyValue[K, V]
	for i, record := range records {
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
		kvs, err := mapper.Map(record)
		if err != nil {
			return nil, fmt.Errorf("map record %d: %w", offset+i, err)
		}
		mapped = append(mapped, kvs...)
	}
	return mapped, nil
}

// reduceKeys reduces every key in keys into results. Results are stored under the shuffled
// key, not the key returned by the reducer.
func reduceKeys[K comparable, V any](
	ctx context.Context,
	reducer core.Reducer[K, V],
	keys []K,
	values map[K][]V,
	results map[K]V,
) error {
	for _, key := range keys {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		kv, err := reducer.Reduce(key, values[key])
		if err != nil {
			return fmt.Errorf("reduce key %v: %w", key, err)
		}
		results[key] = kv.Value
	}
	return nil
}
