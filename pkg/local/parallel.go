package local

import (
	"context"
	"fmt"
	"hash/maphash"
	"maps"
	"runtime"
	"slices"

	"github.com/nemanja-m/memr/pkg/core"
)

// DefaultWorkers is the pool size used when no explicit worker count is configured.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

type parallelOptions struct {
	numWorkers int
}

type ParallelOption func(*parallelOptions)

func WithWorkers(numWorkers int) ParallelOption {
	return func(o *parallelOptions) {
		o.numWorkers = numWorkers
	}
}

// ParallelEngine fans the map and reduce phases out to a bounded pool of goroutines.
// Each phase gets its own pool and closing it is the barrier before the next phase starts.
type ParallelEngine[K comparable, V any] struct {
	records    []string
	mapper     core.Mapper[K, V]
	reducer    core.Reducer[K, V]
	numWorkers int
	seed       maphash.Seed
}

func NewParallelEngine[K comparable, V any](
	records []string,
	mapper core.Mapper[K, V],
	reducer core.Reducer[K, V],
	options ...ParallelOption,
) (*ParallelEngine[K, V], error) {
	if err := validate(records, mapper, reducer); err != nil {
		return nil, err
	}

	opts := parallelOptions{numWorkers: DefaultWorkers()}
	for _, option := range options {
		option(&opts)
	}
	if opts.numWorkers <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, opts.numWorkers)
	}

	return &ParallelEngine[K, V]{
		records:    records,
		mapper:     mapper,
		reducer:    reducer,
		numWorkers: opts.numWorkers,
		seed:       maphash.MakeSeed(),
	}, nil
}

func (e *ParallelEngine[K, V]) Workers() int {
	return e.numWorkers
}

func (e *ParallelEngine[K, V]) Execute(ctx context.Context) (map[K]V, error) {
	// The first failing task cancels its siblings.
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	mapped, err := e.runMap(ctx, cancel)
	if err != nil {
		return nil, err
	}
	shuffled := shuffle(mapped)
	return e.runReduce(ctx, cancel, shuffled)
}

// runMap splits the records into contiguous chunks, one per worker.
func (e *ParallelEngine[K, V]) runMap(ctx context.Context, cancel context.CancelCauseFunc) ([]core.KeyValue[K, V], error) {
	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}

	chunkSize := (len(e.records) + e.numWorkers - 1) / e.numWorkers
	numChunks := (len(e.records) + chunkSize - 1) / chunkSize
	partials := make([][]core.KeyValue[K, V], numChunks)

	pool := NewPool(numChunks)
	pool.Start()
	for i := range numChunks {
		start := i * chunkSize
		end := min(start+chunkSize, len(e.records))
		pool.Submit(func() error {
			// Panics are recovered here so they cancel the siblings like any other failure.
			err := safeCall(func() error {
				kvs, err := mapRecords(ctx, e.mapper, start, e.records[start:end])
				partials[i] = kvs
				return err
			})
			if err != nil {
				cancel(err)
			}
			return err
		})
	}
	if err := pool.Close(); err != nil {
		return nil, err
	}

	return slices.Concat(partials...), nil
}

// runReduce hashes every distinct key to exactly one worker. Workers write into their own maps
// which are merged once the pool is closed.
func (e *ParallelEngine[K, V]) runReduce(ctx context.Context, cancel context.CancelCauseFunc, shuffled groups[K, V]) (map[K]V, error) {
	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}

	buckets := make([][]K, e.numWorkers)
	for _, key := range shuffled.keys {
		bucket := core.Partition(e.seed, key, e.numWorkers)
		buckets[bucket] = append(buckets[bucket], key)
	}
	partials := make([]map[K]V, e.numWorkers)

	pool := NewPool(e.numWorkers)
	pool.Start()
	for i, keys := range buckets {
		if len(keys) == 0 {
			continue
		}
		pool.Submit(func() error {
			results := make(map[K]V, len(keys))
			err := safeCall(func() error {
				return reduceKeys(ctx, e.reducer, keys, shuffled.values, results)
			})
			if err != nil {
				cancel(err)
				return err
			}
			partials[i] = results
			return nil
		})
	}
	if err := pool.Close(); err != nil {
		return nil, err
	}

	results := make(map[K]V, len(shuffled.keys))
	for _, partial := range partials {
		maps.Copy(results, partial)
	}
	return results, nil
}
