// Package cache implements the content-addressed, on-disk LLM response
// cache: a SHA-256 key over (version, provider, model, prompt), entries
// stored as JSON under a provider/model/prefix tree, and an LRU+TTL
// cleanup sweep.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Version is the cache format version. Bump it whenever the prompt
// templates or response schema change, since that invalidates every
// previously cached entry.
const Version = "1.0.0"

// KeyGenerator produces deterministic SHA-256 cache keys.
type KeyGenerator struct {
	version string
}

// NewKeyGenerator returns a KeyGenerator pinned to the current cache Version.
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{version: Version}
}

// NewKeyGeneratorWithVersion returns a KeyGenerator pinned to a custom version,
// useful for tests that need to simulate a version mismatch.
func NewKeyGeneratorWithVersion(version string) *KeyGenerator {
	return &KeyGenerator{version: version}
}

// Version returns the version this generator hashes with.
func (g *KeyGenerator) Version() string { return g.version }

// GenerateKey hashes version, provider, model, and the full prompt text, in
// that order, separated by "|". Changing any one of them changes the key.
func (g *KeyGenerator) GenerateKey(prompt, model, provider string) string {
	h := sha256.New()
	h.Write([]byte(g.version))
	h.Write([]byte{'|'})
	h.Write([]byte(provider))
	h.Write([]byte{'|'})
	h.Write([]byte(model))
	h.Write([]byte{'|'})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}
