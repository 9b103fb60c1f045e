package detector

import (
	"context"
	"sync"
)

// SignatureCache memoizes code-signature lookups keyed by resolved binary
// path. Detectors in the same chunk read and write it concurrently, so every
// access goes through the RWMutex.
type SignatureCache struct {
	mu   sync.RWMutex
	sigs map[string]string
}

// NewSignatureCache creates an empty signature cache
func NewSignatureCache() *SignatureCache {
	return &SignatureCache{
		sigs: make(map[string]string),
	}
}

// Get returns a cached signature verdict for a binary path
func (c *SignatureCache) Get(path string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sig, ok := c.sigs[path]
	return sig, ok
}

// Set stores a signature verdict for a binary path
func (c *SignatureCache) Set(path, signature string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sigs[path] = signature
}

// Len returns the number of cached entries
func (c *SignatureCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sigs)
}

// Lookup returns the cached verdict for path, calling resolve on a miss and
// caching its result. Concurrent misses for the same path may both resolve;
// the verdict is stable so the duplicate work is harmless.
func (c *SignatureCache) Lookup(ctx context.Context, path string, resolve func(context.Context, string) string) string {
	if sig, ok := c.Get(path); ok {
		return sig
	}
	sig := resolve(ctx, path)
	c.Set(path, sig)
	return sig
}
