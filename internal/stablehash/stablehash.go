// Package stablehash provides the deterministic, process- and
// platform-independent 64-bit hash used to bucket positions into tasks
// (spec §4.1: stable_hash(position_id) mod hash_mod).
package stablehash

import "github.com/cespare/xxhash/v2"

// Hash64 returns a fixed 64-bit non-cryptographic hash of s's UTF-8 bytes.
// xxhash is a pure function of its input bytes, so the result is identical
// across processes, goroutines and platforms.
func Hash64(s string) uint64 {
	return xxhash.Sum64String(s)
}

// Bucket returns stable_hash(s) mod hashMod. hashMod must be positive; a
// hashMod of 1 (the default) always returns bucket 0.
func Bucket(s string, hashMod int) int {
	if hashMod <= 0 {
		hashMod = 1
	}
	return int(Hash64(s) % uint64(hashMod))
}
