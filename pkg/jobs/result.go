package jobs

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/nemanja-m/memr/pkg/core"
	"github.com/nemanja-m/memr/pkg/local"
)

// Result is one formatted entry of a job's output.
type Result = core.KeyValue[string, string]

// execute runs mapper and reducer on the engine selected by config and formats the result
// mapping as key-sorted string pairs.
func execute[K cmp.Ordered, V any](
	ctx context.Context,
	records []string,
	mapper core.Mapper[K, V],
	reducer core.Reducer[K, V],
	config local.Config,
	format func(V) string,
) ([]Result, error) {
	engine, err := local.NewEngine(records, mapper, reducer, config)
	if err != nil {
		return nil, err
	}

	reduced, err := engine.Execute(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(reduced))
	for _, key := range slices.Sorted(maps.Keys(reduced)) {
		results = append(results, Result{Key: fmt.Sprint(key), Value: format(reduced[key])})
	}
	return results, nil
}
