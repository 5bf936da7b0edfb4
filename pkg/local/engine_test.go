package local

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nemanja-m/memr/pkg/core"
)

var nonWord = regexp.MustCompile(`\W+`)

func wordCountMapper() core.MapFunc[string, int] {
	return func(line string) ([]core.KeyValue[string, int], error) {
		var kvs []core.KeyValue[string, int]
		for _, word := range nonWord.Split(strings.ToLower(line), -1) {
			if word != "" {
				kvs = append(kvs, core.NewKeyValue(word, 1))
			}
		}
		return kvs, nil
	}
}

func countReducer() core.ReduceFunc[string, int] {
	return func(key string, values []int) (core.KeyValue[string, int], error) {
		return core.NewKeyValue(key, len(values)), nil
	}
}

func averageMapper() core.MapFunc[string, float64] {
	return func(line string) ([]core.KeyValue[string, float64], error) {
		fields := strings.Split(line, ",")
		if len(fields) < 2 {
			return nil, fmt.Errorf("expected 2 columns, got %d", len(fields))
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, err
		}
		return []core.KeyValue[string, float64]{core.NewKeyValue(fields[0], value)}, nil
	}
}

func averageReducer() core.ReduceFunc[string, float64] {
	return func(key string, values []float64) (core.KeyValue[string, float64], error) {
		if len(values) == 0 {
			return core.NewKeyValue(key, 0.0), nil
		}
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return core.NewKeyValue(key, sum/float64(len(values))), nil
	}
}

// engines builds one engine per strategy plus parallel engines with several pool sizes.
func engines[K comparable, V any](t *testing.T, records []string, mapper core.Mapper[K, V], reducer core.Reducer[K, V]) map[string]core.Engine[K, V] {
	t.Helper()

	sequential, err := NewSequentialEngine(records, mapper, reducer)
	require.NoError(t, err)

	all := map[string]core.Engine[K, V]{"sequential": sequential}
	for _, workers := range []int{1, 2, 3, 8} {
		parallel, err := NewParallelEngine(records, mapper, reducer, WithWorkers(workers))
		require.NoError(t, err)
		all[fmt.Sprintf("parallel-%d", workers)] = parallel
	}
	return all
}

func TestEngine_WordCount(t *testing.T) {
	records := []string{"foo bar foo", "bar baz"}
	for name, engine := range engines(t, records, wordCountMapper(), countReducer()) {
		t.Run(name, func(t *testing.T) {
			counts, err := engine.Execute(context.Background())
			require.NoError(t, err)
			require.Equal(t, map[string]int{"foo": 2, "bar": 2, "baz": 1}, counts)
		})
	}
}

func TestEngine_Aggregation(t *testing.T) {
	records := []string{"A,10.0", "B,20.0", "A,30.0", "C,40.0", "B,60.0"}
	for name, engine := range engines(t, records, averageMapper(), averageReducer()) {
		t.Run(name, func(t *testing.T) {
			averages, err := engine.Execute(context.Background())
			require.NoError(t, err)
			require.Len(t, averages, 3)
			require.InDelta(t, 20.0, averages["A"], 0.001)
			require.InDelta(t, 40.0, averages["B"], 0.001)
			require.InDelta(t, 40.0, averages["C"], 0.001)
		})
	}
}

func TestEngine_MalformedRecordFailsWholeCall(t *testing.T) {
	records := []string{"A,10.0", "B,20.0", "A,oops", "C,40.0"}
	for name, engine := range engines(t, records, averageMapper(), averageReducer()) {
		t.Run(name, func(t *testing.T) {
			results, err := engine.Execute(context.Background())
			require.Error(t, err)
			require.Nil(t, results)

			var numErr *strconv.NumError
			require.ErrorAs(t, err, &numErr)
			require.Contains(t, err.Error(), "map record 2")
		})
	}
}

func TestEngine_ReducerErrorFailsWholeCall(t *testing.T) {
	boom := errors.New("boom")
	reducer := core.ReduceFunc[string, int](func(key string, values []int) (core.KeyValue[string, int], error) {
		if key == "bar" {
			return core.KeyValue[string, int]{}, boom
		}
		return core.NewKeyValue(key, len(values)), nil
	})

	for name, engine := range engines(t, []string{"foo bar", "baz qux"}, wordCountMapper(), reducer) {
		t.Run(name, func(t *testing.T) {
			results, err := engine.Execute(context.Background())
			require.ErrorIs(t, err, boom)
			require.Nil(t, results)
			require.Contains(t, err.Error(), "reduce key bar")
		})
	}
}

func TestEngine_PanicIsReportedAsError(t *testing.T) {
	mapper := core.MapFunc[string, int](func(line string) ([]core.KeyValue[string, int], error) {
		if line == "explode" {
			panic("mapper exploded")
		}
		return []core.KeyValue[string, int]{core.NewKeyValue(line, 1)}, nil
	})

	for name, engine := range engines(t, []string{"a", "explode", "b"}, mapper, countReducer()) {
		t.Run(name, func(t *testing.T) {
			results, err := engine.Execute(context.Background())
			require.ErrorIs(t, err, ErrTaskPanic)
			require.Nil(t, results)
		})
	}
}

func TestEngine_SequentialMatchesParallel(t *testing.T) {
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta"}
	records := make([]string, 0, 500)
	for i := range 500 {
		var line []string
		for j := range i%7 + 1 {
			line = append(line, words[(i*j+i)%len(words)])
		}
		records = append(records, strings.Join(line, " "))
	}

	sequential, err := NewSequentialEngine(records, wordCountMapper(), countReducer())
	require.NoError(t, err)
	expected, err := sequential.Execute(context.Background())
	require.NoError(t, err)

	for workers := 1; workers <= 16; workers++ {
		parallel, err := NewParallelEngine(records, wordCountMapper(), countReducer(), WithWorkers(workers))
		require.NoError(t, err)

		got, err := parallel.Execute(context.Background())
		require.NoError(t, err)
		require.Equal(t, expected, got, "workers=%d", workers)
	}
}

func TestEngine_ExecuteIsIdempotent(t *testing.T) {
	records := []string{"a b c", "a b", "a"}
	for name, engine := range engines(t, records, wordCountMapper(), countReducer()) {
		t.Run(name, func(t *testing.T) {
			first, err := engine.Execute(context.Background())
			require.NoError(t, err)
			second, err := engine.Execute(context.Background())
			require.NoError(t, err)
			require.Equal(t, first, second)
			require.Equal(t, map[string]int{"a": 3, "b": 2, "c": 1}, first)
		})
	}
}

// recordingReducer remembers the values passed for every key.
type recordingReducer struct {
	mu   sync.Mutex
	seen map[string][]int
}

func (r *recordingReducer) Reduce(key string, values []int) (core.KeyValue[string, int], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[key]; ok {
		return core.KeyValue[string, int]{}, fmt.Errorf("key %s reduced twice", key)
	}
	r.seen[key] = slices.Clone(values)
	return core.NewKeyValue(key, len(values)), nil
}

func keyValueMapper() core.MapFunc[string, int] {
	return func(line string) ([]core.KeyValue[string, int], error) {
		var kvs []core.KeyValue[string, int]
		for field := range strings.FieldsSeq(line) {
			key, raw, _ := strings.Cut(field, "=")
			value, err := strconv.Atoi(raw)
			if err != nil {
				return nil, err
			}
			kvs = append(kvs, core.NewKeyValue(key, value))
		}
		return kvs, nil
	}
}

func TestEngine_GroupingPassesEveryValueOnce(t *testing.T) {
	records := []string{"a=1 b=2", "a=3", "c=4 a=5 b=6", "", "c=7"}
	expected := map[string][]int{"a": {1, 3, 5}, "b": {2, 6}, "c": {4, 7}}

	for _, workers := range []int{0, 1, 2, 4} {
		t.Run(fmt.Sprintf("workers-%d", workers), func(t *testing.T) {
			reducer := &recordingReducer{seen: make(map[string][]int)}

			var engine core.Engine[string, int]
			var err error
			if workers == 0 {
				engine, err = NewEngine(records, keyValueMapper(), reducer, Config{Mode: ModeSequential})
			} else {
				engine, err = NewEngine(records, keyValueMapper(), reducer, Config{Mode: ModeParallel, Workers: workers})
			}
			require.NoError(t, err)

			results, err := engine.Execute(context.Background())
			require.NoError(t, err)
			require.Len(t, results, len(expected))
			require.Len(t, reducer.seen, len(expected))
			for key, values := range expected {
				require.ElementsMatch(t, values, reducer.seen[key], "key=%s", key)
				require.Equal(t, len(values), results[key])
			}
		})
	}
}

func TestSequentialEngine_PreservesEncounterOrderWithinGroup(t *testing.T) {
	reducer := &recordingReducer{seen: make(map[string][]int)}
	engine, err := NewSequentialEngine([]string{"a=3 b=1", "a=1", "a=2 b=9"}, keyValueMapper(), reducer)
	require.NoError(t, err)

	_, err = engine.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{3, 1, 2}, reducer.seen["a"])
	require.Equal(t, []int{1, 9}, reducer.seen["b"])
}

func TestEngine_NoPairsProducesEmptyResult(t *testing.T) {
	for name, engine := range engines(t, []string{"", "   ... --- !!!"}, wordCountMapper(), countReducer()) {
		t.Run(name, func(t *testing.T) {
			counts, err := engine.Execute(context.Background())
			require.NoError(t, err)
			require.NotNil(t, counts)
			require.Empty(t, counts)
		})
	}
}

func TestEngine_ResultIsKeyedByShuffledKey(t *testing.T) {
	reducer := core.ReduceFunc[string, int](func(key string, values []int) (core.KeyValue[string, int], error) {
		return core.NewKeyValue(strings.ToUpper(key), len(values)), nil
	})

	for name, engine := range engines(t, []string{"x y x"}, wordCountMapper(), reducer) {
		t.Run(name, func(t *testing.T) {
			counts, err := engine.Execute(context.Background())
			require.NoError(t, err)
			require.Equal(t, map[string]int{"x": 2, "y": 1}, counts)
		})
	}
}

func TestEngine_EmptyValuesToleratedByReducer(t *testing.T) {
	kv, err := averageReducer().Reduce("empty", nil)
	require.NoError(t, err)
	require.Equal(t, "empty", kv.Key)
	require.Zero(t, kv.Value)
	require.False(t, math.IsNaN(kv.Value))
}

func TestEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, engine := range engines(t, []string{"a b", "c"}, wordCountMapper(), countReducer()) {
		t.Run(name, func(t *testing.T) {
			results, err := engine.Execute(ctx)
			require.ErrorIs(t, err, context.Canceled)
			require.Nil(t, results)
		})
	}
}

func TestParallelEngine_MapStopsAtFirstFailure(t *testing.T) {
	records := make([]string, 64)
	for i := range records {
		records[i] = strconv.Itoa(i)
	}

	var mu sync.Mutex
	mapped := 0
	mapper := core.MapFunc[string, int](func(line string) ([]core.KeyValue[string, int], error) {
		if line == "0" {
			return nil, errors.New("first record is broken")
		}
		mu.Lock()
		mapped++
		mu.Unlock()
		return []core.KeyValue[string, int]{core.NewKeyValue(line, 1)}, nil
	})

	engine, err := NewParallelEngine(records, mapper, countReducer(), WithWorkers(1))
	require.NoError(t, err)

	_, err = engine.Execute(context.Background())
	require.ErrorContains(t, err, "first record is broken")
	require.Zero(t, mapped)
}

func TestParallelEngine_PanicStopsSiblingPartitions(t *testing.T) {
	records := make([]string, 40)
	for i := range records {
		records[i] = strconv.Itoa(i)
	}

	var mapped atomic.Int32
	mapper := core.MapFunc[string, int](func(line string) ([]core.KeyValue[string, int], error) {
		if line == "0" {
			panic("boom")
		}
		time.Sleep(5 * time.Millisecond)
		mapped.Add(1)
		return []core.KeyValue[string, int]{core.NewKeyValue(line, 1)}, nil
	})

	engine, err := NewParallelEngine(records, mapper, countReducer(), WithWorkers(2))
	require.NoError(t, err)

	_, err = engine.Execute(context.Background())
	require.ErrorIs(t, err, ErrTaskPanic)
	require.Less(t, int(mapped.Load()), 20, "second partition should stop once the first one panics")
}

func TestParallelEngine_ReducePanicStopsSiblingPartitions(t *testing.T) {
	records := make([]string, 200)
	for i := range records {
		records[i] = strconv.Itoa(i)
	}

	var reduced atomic.Int32
	reducer := core.ReduceFunc[string, int](func(key string, values []int) (core.KeyValue[string, int], error) {
		if key == "0" {
			panic("boom")
		}
		time.Sleep(2 * time.Millisecond)
		reduced.Add(1)
		return core.NewKeyValue(key, len(values)), nil
	})

	engine, err := NewParallelEngine(records, wordCountMapper(), reducer, WithWorkers(2))
	require.NoError(t, err)

	_, err = engine.Execute(context.Background())
	require.ErrorIs(t, err, ErrTaskPanic)
	require.Less(t, int(reduced.Load()), 199)
}

func TestNewEngine_Validation(t *testing.T) {
	mapper := wordCountMapper()
	reducer := countReducer()

	tests := []struct {
		name    string
		records []string
		mapper  core.Mapper[string, int]
		reducer core.Reducer[string, int]
		config  Config
		wantErr error
	}{
		{name: "nil records", records: nil, mapper: mapper, reducer: reducer, wantErr: ErrNoRecords},
		{name: "empty records", records: []string{}, mapper: mapper, reducer: reducer, wantErr: ErrNoRecords},
		{name: "nil mapper", records: []string{"a"}, mapper: nil, reducer: reducer, wantErr: ErrNilMapper},
		{name: "nil map func", records: []string{"a"}, mapper: core.MapFunc[string, int](nil), reducer: reducer, wantErr: ErrNilMapper},
		{name: "nil reducer", records: []string{"a"}, mapper: mapper, reducer: nil, wantErr: ErrNilReducer},
		{name: "nil reduce func", records: []string{"a"}, mapper: mapper, reducer: core.ReduceFunc[string, int](nil), wantErr: ErrNilReducer},
		{name: "negative workers", records: []string{"a"}, mapper: mapper, reducer: reducer, config: Config{Mode: ModeParallel, Workers: -1}, wantErr: ErrInvalidWorkers},
		{name: "sequential nil records", records: nil, mapper: mapper, reducer: reducer, config: Config{Mode: ModeSequential}, wantErr: ErrNoRecords},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := NewEngine(tt.records, tt.mapper, tt.reducer, tt.config)
			require.ErrorIs(t, err, tt.wantErr)
			require.Nil(t, engine)
		})
	}
}

func TestNewEngine_UnknownMode(t *testing.T) {
	engine, err := NewEngine([]string{"a"}, wordCountMapper(), countReducer(), Config{Mode: "distributed"})
	require.Error(t, err)
	require.Nil(t, engine)
}

func TestNewParallelEngine_Workers(t *testing.T) {
	engine, err := NewParallelEngine([]string{"a"}, wordCountMapper(), countReducer())
	require.NoError(t, err)
	require.Equal(t, DefaultWorkers(), engine.Workers())

	engine, err = NewParallelEngine([]string{"a"}, wordCountMapper(), countReducer(), WithWorkers(3))
	require.NoError(t, err)
	require.Equal(t, 3, engine.Workers())

	for _, workers := range []int{0, -4} {
		engine, err = NewParallelEngine([]string{"a"}, wordCountMapper(), countReducer(), WithWorkers(workers))
		require.ErrorIs(t, err, ErrInvalidWorkers)
		require.Nil(t, engine)
	}
}

func TestParallelEngine_MoreWorkersThanRecords(t *testing.T) {
	engine, err := NewParallelEngine([]string{"a a", "b"}, wordCountMapper(), countReducer(), WithWorkers(32))
	require.NoError(t, err)

	counts, err := engine.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]int{"a": 2, "b": 1}, counts)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode(" Sequential ")
	require.NoError(t, err)
	require.Equal(t, ModeSequential, mode)

	mode, err = ParseMode("parallel")
	require.NoError(t, err)
	require.Equal(t, ModeParallel, mode)

	_, err = ParseMode("cluster")
	require.Error(t, err)
}
