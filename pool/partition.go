package pool

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// Sizes returns the size of each of k chunks over n elements: the
// first n%k chunks get n/k+1 elements, the rest n/k.
func Sizes(n, k int) ([]int, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: partition count must be at least 1, got %d", ErrInvalidArgument, k)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative element count %d", ErrInvalidArgument, n)
	}

	sizes := make([]int, k)
	base, extra := n/k, n%k
	for i := range sizes {
		sizes[i] = base
		if i < extra {
			sizes[i]++
		}
	}
	return sizes, nil
}

// PartitionKeys splits m into exactly k maps, assigning keys in the order
// given. Keys not present in m are skipped; duplicate keys count once.
// When k exceeds the number of keys the trailing maps are empty.
func PartitionKeys[K comparable, V any](keys []K, m map[K]V, k int) ([]map[K]V, error) {
	ordered := make([]K, 0, len(keys))
	seen := make(map[K]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := m[key]; !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ordered = append(ordered, key)
	}

	sizes, err := Sizes(len(ordered), k)
	if err != nil {
		return nil, err
	}

	parts := make([]map[K]V, k)
	next := 0
	for i, size := range sizes {
		parts[i] = make(map[K]V, size)
		for _, key := range ordered[next : next+size] {
			parts[i][key] = m[key]
		}
		next += size
	}
	return parts, nil
}

// Partition splits m into exactly k maps of near-equal size. Which key lands
// in which map follows Go's map iteration order and so differs between runs;
// the sizes do not. Use PartitionSorted for a reproducible assignment.
func Partition[K comparable, V any](m map[K]V, k int) ([]map[K]V, error) {
	return PartitionKeys(slices.Collect(maps.Keys(m)), m, k)
}

// PartitionSorted is Partition with keys assigned in ascending order.
func PartitionSorted[K cmp.Ordered, V any](m map[K]V, k int) ([]map[K]V, error) {
	return PartitionKeys(slices.Sorted(maps.Keys(m)), m, k)
}

// SplitSlice cuts s into exactly k consecutive chunks using the same size
// rule as Partition. Chunks share s's backing array.
func SplitSlice[T any](s []T, k int) ([][]T, error) {
	sizes, err := Sizes(len(s), k)
	if err != nil {
		return nil, err
	}

	chunks := make([][]T, k)
	next := 0
	for i, size := range sizes {
		chunks[i] = s[next : next+size : next+size]
		next += size
	}
	return chunks, nil
}
