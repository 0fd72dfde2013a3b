// Package llm abstracts the text-generation backend.
//
// Workflows depend only on the Client interface; the one production
// implementation talks to the Anthropic API, directly or through AWS
// Bedrock. Tests substitute scripted fakes.
package llm

import "context"

// Request is one generation call.
type Request struct {
	// Prompt is the user-turn text. Required.
	Prompt string
	// System is an optional system instruction.
	System string
	// Model overrides the client's default model when non-empty.
	Model string
	// Stream relays text deltas to the client's side channel as they
	// arrive. The full text is still returned in the Response.
	Stream bool
}

// Response is the result of a generation call.
type Response struct {
	Text string
	// OutputTokens is the backend-reported output token count,
	// 0 when the backend does not report usage.
	OutputTokens int
}

// Client produces text for prompts. Implementations must honor
// context cancellation and are safe for concurrent use.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
}
