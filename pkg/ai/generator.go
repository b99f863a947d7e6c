package ai

import "context"

// Turn is one prior exchange in a multi-turn conversation.
// Role is "user" or "model".
type Turn struct {
	Role string
	Text string
}

// Request describes a single text generation call.
// When Schema is set the provider is asked for JSON conforming to it.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	History      []Turn
	Schema       *Schema
}

// TextGenerator generates text (or schema-constrained JSON) from a request.
// All text providers (Gemini, OpenAI-compatible) implement this interface.
type TextGenerator interface {
	GenerateText(ctx context.Context, req Request) (string, error)
}

// Image is raw image bytes returned inline by a provider.
type Image struct {
	MIMEType string
	Data     []byte
}

// ImageGenerator produces a single image for a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (Image, error)
}
