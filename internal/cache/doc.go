// Package cache keeps synthesized clips so that repeated text does not cost
// another provider call. An in-memory LRU (L1) sits in front of a zstd
// compressed disk store (L2) with TTL cleanup.
package cache
