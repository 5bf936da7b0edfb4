package core

import "hash/maphash"

// Partition assigns key to one of numPartitions buckets. Keys hashed with the same seed always
// land in the same bucket.
func Partition[K comparable](seed maphash.Seed, key K, numPartitions int) int {
	if numPartitions <= 0 {
		return 0
	}
	return int(maphash.Comparable(seed, key) % uint64(numPartitions))
}
