package core

import "context"

// KeyValue is the unit of data flowing between the map, shuffle and reduce phases.
type KeyValue[K comparable, V any] struct {
	Key   K
	Value V
}

func NewKeyValue[K comparable, V any](key K, value V) KeyValue[K, V] {
	return KeyValue[K, V]{Key: key, Value: value}
}

// Mapper turns a single input record into zero or more key-value pairs.
// Implementations must be safe for concurrent use on different records.
type Mapper[K comparable, V any] interface {
	Map(record string) ([]KeyValue[K, V], error)
}

// Reducer aggregates all values emitted for a key into a single pair.
// Implementations must accept an empty values slice.
type Reducer[K comparable, V any] interface {
	Reduce(key K, values []V) (KeyValue[K, V], error)
}

type MapFunc[K comparable, V any] func(record string) ([]KeyValue[K, V], error)

func (f MapFunc[K, V]) Map(record string) ([]KeyValue[K, V], error) {
	return f(record)
}

type ReduceFunc[K comparable, V any] func(key K, values []V) (KeyValue[K, V], error)

func (f ReduceFunc[K, V]) Reduce(key K, values []V) (KeyValue[K, V], error) {
	return f(key, values)
}

// Engine runs map, shuffle and reduce over its input and returns one entry per distinct key.
type Engine[K comparable, V any] interface {
	Execute(ctx context.Context) (map[K]V, error)
}
