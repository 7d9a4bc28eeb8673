// Package cache provides a small keyed result cache for expensive
// capability calls (text extraction, OCR, AI completions). Keys are
// scoped by operation so the same document hash can carry independent
// entries per capability.
package cache

import "context"

// Cache is the abstraction injected into the pipeline. Implementations
// must be safe for concurrent use. A miss is (nil, false, nil); errors
// are reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, op, key string) ([]byte, bool, error)
	Set(ctx context.Context, op, key string, value []byte) error
}

// Nop caches nothing. Useful for one-shot runs and tests.
type Nop struct{}

func (Nop) Get(context.Context, string, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, string, []byte) error         { return nil }
