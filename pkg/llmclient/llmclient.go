// Package llmclient is the narrow LLM capability used by the Analyzer
// Enhancer (C4), AI Review (C5), and discovery's strategy hint. Every call
// site depends only on the LLMClient interface, never a concrete SDK type,
// so stages degrade identically regardless of which backend is configured.
package llmclient

import "context"

// GenerateRequest is a single non-streaming completion request. The
// pipeline only ever needs one full response per call (unlike the
// teacher's chat-facing streaming Chunk union), so the interface is
// collapsed to request/response.
type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
	// JSONMode hints the backend to constrain output to a JSON object,
	// when the backend supports it. Callers must still defensively parse
	// the result (see pkg/review for the repair pipeline).
	JSONMode bool
}

// GenerateResponse is a completed model response.
type GenerateResponse struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// LLMClient is implemented by every provider backend plus NoopClient.
type LLMClient interface {
	// Name identifies the backend for logging and the /health payload:
	// "llm_a" or "llm_b".
	Name() string
	// Available reports whether the backend has everything it needs
	// (typically an API key) to attempt a call.
	Available() bool
	// Generate issues one completion request. Implementations must
	// respect ctx cancellation/timeout (recommended 60s per call, per
	// the job's total-LLM budget).
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// ErrUnavailable is returned by Generate when the backend has no
// credentials configured; callers treat this as LLMFailure and degrade.
type ErrUnavailable struct{ Backend string }

func (e *ErrUnavailable) Error() string {
	return e.Backend + ": not configured"
}

// NoopClient is returned when neither LLM_A_API_KEY nor LLM_B_API_KEY is
// set, so call sites never need to nil-check the client itself.
type NoopClient struct{ NamedAs string }

func (n NoopClient) Name() string      { return n.NamedAs }
func (n NoopClient) Available() bool    { return false }
func (n NoopClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	return nil, &ErrUnavailable{Backend: n.NamedAs}
}

// Registry resolves the "service" request parameter (llm_a / llm_b) to a
// concrete client, defaulting to whichever is configured when the caller
// doesn't care.
type Registry struct {
	clients map[string]LLMClient
}

// NewRegistry wires the two provider backends behind the LLMClient
// interface, substituting NoopClient for whichever key is absent.
func NewRegistry(llmAKey, llmBKey string) *Registry {
	r := &Registry{clients: make(map[string]LLMClient, 2)}
	if llmAKey != "" {
		r.clients["llm_a"] = newAnthropicBackend(llmAKey)
	} else {
		r.clients["llm_a"] = NoopClient{NamedAs: "llm_a"}
	}
	if llmBKey != "" {
		r.clients["llm_b"] = newOpenAIBackend(llmBKey)
	} else {
		r.clients["llm_b"] = NoopClient{NamedAs: "llm_b"}
	}
	return r
}

// Get returns the named backend, or the first available one when name is
// empty or unknown.
func (r *Registry) Get(name string) LLMClient {
	if c, ok := r.clients[name]; ok {
		return c
	}
	for _, preferred := range []string{"llm_a", "llm_b"} {
		if c := r.clients[preferred]; c.Available() {
			return c
		}
	}
	return NoopClient{NamedAs: "none"}
}
