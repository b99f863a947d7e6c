package ai

import "context"

// GeminiGenerator wraps GeminiClient with fixed text and image models.
type GeminiGenerator struct {
	client     *GeminiClient
	model      string
	imageModel string
}

// NewGeminiGenerator builds a Gemini-based TextGenerator and ImageGenerator.
func NewGeminiGenerator(client *GeminiClient, model, imageModel string) *GeminiGenerator {
	return &GeminiGenerator{client: client, model: model, imageModel: imageModel}
}

// GenerateText implements TextGenerator using Gemini.
func (g *GeminiGenerator) GenerateText(ctx context.Context, req Request) (string, error) {
	return g.client.GenerateText(ctx, g.model, req)
}

// GenerateImage implements ImageGenerator using the configured image model.
func (g *GeminiGenerator) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	return g.client.GenerateImage(ctx, g.imageModel, prompt)
}
