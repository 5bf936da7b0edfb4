package local

import (
	"context"

	"github.com/nemanja-m/memr/pkg/core"
)

// SequentialEngine runs every phase on the calling goroutine in input order. Its output is the
// reference the parallel engine is checked against.
type SequentialEngine[K comparable, V any] struct {
	records []string
	mapper  core.Mapper[K, V]
	reducer core.Reducer[K, V]
}

func NewSequentialEngine[K comparable, V any](
	records []string,
	mapper core.Mapper[K, V],
	reducer core.Reducer[K, V],
) (*SequentialEngine[K, V], error) {
	if err := validate(records, mapper, reducer); err != nil {
		return nil, err
	}
	return &SequentialEngine[K, V]{
		records: records,
		mapper:  mapper,
		reducer: reducer,
	}, nil
}

func (e *SequentialEngine[K, V]) Execute(ctx context.Context) (results map[K]V, err error) {
	defer recoverPanic(&err)

	mapped, err := e.runMap(ctx)
	if err != nil {
		return nil, err
	}
	shuffled := shuffle(mapped)
	return e.runReduce(ctx, shuffled)
}

func (e *SequentialEngine[K, V]) runMap(ctx context.Context) ([]core.KeyValue[K, V], error) {
	return mapRecords(ctx, e.mapper, 0, e.records)
}

func (e *SequentialEngine[K, V]) runReduce(ctx context.Context, shuffled groups[K, V]) (map[K]V, error) {
	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}
	results := make(map[K]V, len(shuffled.keys))
	if err := reduceKeys(ctx, e.reducer, shuffled.keys, shuffled.values, results); err != nil {
		return nil, err
	}
	return results, nil
}
