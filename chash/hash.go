package chash

import (
	"hash/maphash"

	"golang.org/x/crypto/blake2b"
)

// hashBits masks a raw 32-bit hash down to 30 bits, keeping the top two
// bits of every stored hash zero. Forwarding and tree markers are told
// apart from ordinary bins by node.kind, not by these bits.
const hashBits = 0x3FFFFFFF

// spread folds the high bits of a raw hash down into the low bits and then
// masks to 30 bits (§4.1). Every input bit participates in the output via
// the two XOR-shifts below, and the result's top two bits are always zero.
func spread(h uint32) uint32 {
	h ^= h >> 16
	h ^= h >> 8
	return h & hashBits
}

// Hasher computes a raw (unspread) 32-bit hash for a key. chash applies its
// own spread step (§4.1) on top, so a Hasher only needs to distribute keys
// reasonably across 32 bits; it does not need to worry about the table's
// reserved state bits itself.
type Hasher[K any] func(key K) uint32

// StringHasher returns a Hasher for string keys backed by Go's randomized
// hash/maphash. Each call draws a fresh seed, so Hashers from two calls
// hash the same string differently.
func StringHasher() Hasher[string] {
	var seed = maphash.MakeSeed()
	return func(key string) uint32 {
		var h maphash.Hash
		h.SetSeed(seed)
		_, _ = h.WriteString(key)
		return uint32(h.Sum64())
	}
}

// BlakeHasher returns a Hasher for string keys using blake2b-256 instead of
// maphash. It is slower but its distribution does not depend on a
// process-local seed, which is useful when hash values must be reproducible
// across processes (e.g. comparing traversal order in tests, or sharding
// keys consistently across independent Map instances).
func BlakeHasher() Hasher[string] {
	return func(key string) uint32 {
		sum := blake2b.Sum256([]byte(key))
		return uint32(sum[0]) | uint32(sum[1])<<8 | uint32(sum[2])<<16 | uint32(sum[3])<<24
	}
}

// IntHasher returns a Hasher for any signed integer key type using a cheap
// multiplicative mix (Fibonacci hashing), sufficient because spread() still
// folds and re-masks the result.
func IntHasher[K ~int | ~int8 | ~int16 | ~int32 | ~int64]() Hasher[K] {
	return func(key K) uint32 {
		x := uint64(key)
		x *= 0x9E3779B97F4A7C15
		return uint32(x >> 32)
	}
}

// UintHasher is IntHasher's counterpart for unsigned integer key types.
func UintHasher[K ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr]() Hasher[K] {
	return func(key K) uint32 {
		x := uint64(key)
		x *= 0x9E3779B97F4A7C15
		return uint32(x >> 32)
	}
}
