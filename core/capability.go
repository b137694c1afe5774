package core

import "context"

// Prompt is the structured context sent to a language model. Instructions
// become the system prompt; Data is rendered as JSON in the user turn.
type Prompt struct {
	Instructions string
	Data         map[string]any
}

// Capability is the opaque natural-language completion backend. Respond may
// suspend for a long time and may fail; failures are reported as errors
// (typically *CapabilityError), never as text.
type Capability interface {
	Respond(ctx context.Context, prompt Prompt) (string, error)
}
