// Package cmap provides a concurrent-safe sharded map.
//
// Keys are spread over a power-of-two number of shards by their murmur3
// hash; each shard has its own RWMutex.
package cmap
