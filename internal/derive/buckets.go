package derive

// buckets is a date-keyed accumulator that remembers first-insertion order.
type buckets[T any] struct {
	keys  []string
	index map[string]int
	vals  []T
}

func newBuckets[T any]() *buckets[T] {
	return &buckets[T]{index: make(map[string]int)}
}

// at returns the bucket for key, creating a zero value on first use.
func (b *buckets[T]) at(key string) *T {
	i, ok := b.index[key]
	if !ok {
		var zero T
		i = len(b.keys)
		b.index[key] = i
		b.keys = append(b.keys, key)
		b.vals = append(b.vals, zero)
	}
	return &b.vals[i]
}

func (b *buckets[T]) len() int { return len(b.keys) }

func (b *buckets[T]) each(fn func(key string, v *T)) {
	for i, k := range b.keys {
		fn(k, &b.vals[i])
	}
}
