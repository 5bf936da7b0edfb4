package jobs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/nemanja-m/memr/pkg/core"
	"github.com/nemanja-m/memr/pkg/local"
)

func init() {
	mustRegister("aggregation", func() Job {
		return NewAggregationJob()
	})
}

var ErrMalformedRecord = errors.New("malformed record")

type AggregateFunc string

const (
	AggregateMean  AggregateFunc = "mean"
	AggregateSum   AggregateFunc = "sum"
	AggregateMin   AggregateFunc = "min"
	AggregateMax   AggregateFunc = "max"
	AggregateCount AggregateFunc = "count"
)

var aggregateFuncs = []AggregateFunc{AggregateMean, AggregateSum, AggregateMin, AggregateMax, AggregateCount}

// AggregationJob groups delimited records by one column and aggregates a numeric column.
type AggregationJob struct {
	keyColumn   int
	valueColumn int
	separator   string
	function    AggregateFunc
}

func NewAggregationJob() *AggregationJob {
	return &AggregationJob{
		keyColumn:   0,
		valueColumn: 1,
		separator:   ",",
		function:    AggregateMean,
	}
}

func (a *AggregationJob) Name() string {
	return "aggregation"
}

func (a *AggregationJob) Describe() string {
	return "aggregates a numeric column of delimited records grouped by a key column"
}

func (a *AggregationJob) Configure(config map[string]string) error {
	if v, ok := config["key-column"]; ok {
		idx, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid key-column %q: %w", v, err)
		}
		a.keyColumn = idx
	}
	if v, ok := config["value-column"]; ok {
		idx, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid value-column %q: %w", v, err)
		}
		a.valueColumn = idx
	}
	if v, ok := config["separator"]; ok {
		a.separator = v
	}
	if v, ok := config["function"]; ok {
		a.function = AggregateFunc(strings.ToLower(v))
	}
	return a.Validate()
}

func (a *AggregationJob) Validate() error {
	if a.keyColumn < 0 || a.valueColumn < 0 {
		return fmt.Errorf("column indexes must be non-negative")
	}
	if a.separator == "" {
		return fmt.Errorf("separator cannot be empty")
	}
	if !slices.Contains(aggregateFuncs, a.function) {
		return fmt.Errorf("unknown aggregate function %q, expected one of %v", a.function, aggregateFuncs)
	}
	return nil
}

func (a *AggregationJob) Map(line string) ([]core.KeyValue[string, float64], error) {
	fields := strings.Split(line, a.separator)
	if required := max(a.keyColumn, a.valueColumn) + 1; len(fields) < required {
		return nil, fmt.Errorf("%w: expected at least %d columns, got %d", ErrMalformedRecord, required, len(fields))
	}

	raw := strings.TrimSpace(fields[a.valueColumn])
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: column %d: %w", ErrMalformedRecord, a.valueColumn, err)
	}
	return []core.KeyValue[string, float64]{core.NewKeyValue(strings.TrimSpace(fields[a.keyColumn]), value)}, nil
}

// Reduce applies the configured aggregate. Every function yields 0 for an empty values slice.
func (a *AggregationJob) Reduce(key string, values []float64) (core.KeyValue[string, float64], error) {
	if len(values) == 0 {
		return core.NewKeyValue(key, 0.0), nil
	}

	var result float64
	switch a.function {
	case AggregateSum, AggregateMean:
		for _, v := range values {
			result += v
		}
		if a.function == AggregateMean {
			result /= float64(len(values))
		}
	case AggregateMin:
		result = slices.Min(values)
	case AggregateMax:
		result = slices.Max(values)
	case AggregateCount:
		result = float64(len(values))
	default:
		return core.KeyValue[string, float64]{}, fmt.Errorf("unknown aggregate function %q", a.function)
	}
	return core.NewKeyValue(key, result), nil
}

func (a *AggregationJob) Run(ctx context.Context, records []string, config local.Config) ([]Result, error) {
	return execute(ctx, records, a, a, config, formatFloat)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
