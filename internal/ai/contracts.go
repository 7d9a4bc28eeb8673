package ai

import "context"

// Options bound a single completion request.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// Analyzer is the external AI capability: given a prompt, return a
// best-effort text completion. It is unreliable by contract; callers
// must treat the response as untrusted text until parsed and validated.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string, opts Options) (string, error)
}
