package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookpromo/internal/metrics"
	"bookpromo/internal/util"
	"bookpromo/pkg/ai"
	"bookpromo/pkg/domain"
)

// PlaceholderText replaces generated content when the provider fails.
const PlaceholderText = "The system is currently syncing. Please try again in a moment."

const contentSystemPrompt = "You are a luxury brand marketing strategist and a seasoned expert in the book's subject. You answer only with the requested JSON document."

var contentTasks = map[domain.ContentType]string{
	domain.ContentSocialPost: `Create 3 distinct social media posts, one each for LinkedIn, Instagram and Twitter.
- LinkedIn: long-form and professional, built around the book's central idea.
- Instagram: short and punchy with a visual hook, built around one concrete rule from the book.
- Twitter: a thread-starter hook about the problem the book solves.
Also supply image_prompt: one sentence describing a striking visual to accompany the posts.`,
	domain.ContentEmailNewsletter: `Draft a high-conversion sales email.
- Subject: something that breaks the pattern of typical emails in this genre.
- Body: open with the reader's core problem, introduce the book as the structured solution, and close with a strong call to action.`,
	domain.ContentBlogOutline: `Generate a comprehensive blog post outline with a compelling title.
Include 5 main points with sub-points, and a concluding thought that leads the reader to the book.`,
	domain.ContentBlogFull: `Write a complete long-form blog post of roughly 1200 words.
Use a compelling title, an opening story, H2 sections that each teach one idea from the book, and a closing call to action.`,
	domain.ContentAdCopy: `Write 3 versions of Facebook ad copy.
- Version 1: benefit-driven (the "how-to" angle).
- Version 2: fear of missing out (the "falling behind" angle).
- Version 3: visionary (the "legacy" angle).`,
}

var contentSchema = &ai.Schema{
	Type: ai.TypeObject,
	Properties: map[string]*ai.Schema{
		"text":         {Type: ai.TypeString, Description: "The marketing content, formatted as Markdown."},
		"image_prompt": {Type: ai.TypeString, Description: "Optional visual concept for social posts."},
	},
	Required: []string{"text"},
}

type contentResponse struct {
	Text        string `json:"text"`
	ImagePrompt string `json:"image_prompt"`
}

func buildContentPrompt(book domain.BookProfile, contentType domain.ContentType, tone string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are writing for the book %q by %s.\n\n", book.Title, book.Author)
	fmt.Fprintf(&b, "TONE: %s\n", tone)
	fmt.Fprintf(&b, "BOOK DESCRIPTION: %s\n", book.Description)
	fmt.Fprintf(&b, "TARGET AUDIENCE: %s\n", book.TargetAudience)
	if len(book.KeyTakeaways) > 0 {
		b.WriteString("KEY TAKEAWAYS:\n")
		for _, t := range book.KeyTakeaways {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}
	fmt.Fprintf(&b, "\nSTRATEGIC TASK: %s\n\n", contentTasks[contentType])
	b.WriteString("RULES:\n")
	b.WriteString("1. Use vivid, high-impact, evocative language.\n")
	b.WriteString("2. Reference specific laws or concepts from the book by name.\n")
	b.WriteString("3. Write with the precision of someone who has lived the book's principles.\n")
	b.WriteString("4. Format the text field with clean Markdown.\n")
	if contentType != domain.ContentSocialPost {
		b.WriteString("5. Leave image_prompt empty.\n")
	}
	return b.String()
}

// Generate runs the content façade once. Any provider failure is reported as
// ErrGenerationFailed; an unknown type fails before any provider call.
func (a *App) Generate(ctx context.Context, contentType domain.ContentType, tone string) (domain.GeneratedContent, error) {
	if !contentType.Valid() {
		return domain.GeneratedContent{}, fmt.Errorf("%w: %q", ErrUnknownContentType, contentType)
	}
	if a.text == nil {
		return domain.GeneratedContent{}, fmt.Errorf("%w: %w", ErrGenerationFailed, ErrProviderMissing)
	}
	tone = strings.TrimSpace(tone)
	if tone == "" {
		tone = domain.DefaultTone
	}

	start := time.Now()
	raw, err := a.text.GenerateText(ctx, ai.Request{
		SystemPrompt: contentSystemPrompt,
		UserPrompt:   buildContentPrompt(a.book, contentType, tone),
		Schema:       contentSchema,
	})
	if err != nil {
		a.observeGeneration("content", metrics.OutcomeError, start)
		return domain.GeneratedContent{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	var resp contentResponse
	if err := json.Unmarshal([]byte(ai.ExtractJSON(raw)), &resp); err != nil {
		a.observeGeneration("content", metrics.OutcomeError, start)
		return domain.GeneratedContent{}, fmt.Errorf("%w: decode response: %w", ErrGenerationFailed, err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		a.observeGeneration("content", metrics.OutcomeError, start)
		return domain.GeneratedContent{}, fmt.Errorf("%w: empty text", ErrGenerationFailed)
	}
	a.observeGeneration("content", metrics.OutcomeOK, start)

	out := domain.GeneratedContent{Text: text}
	if contentType == domain.ContentSocialPost {
		out.ImagePrompt = strings.TrimSpace(resp.ImagePrompt)
	}
	return out, nil
}

// GenerateContent is the user-facing content operation: provider failures
// become the placeholder text with Fallback set. Only an unknown content
// type is returned as an error.
func (a *App) GenerateContent(ctx context.Context, req domain.ContentRequest) (domain.GeneratedContent, error) {
	out, err := a.Generate(ctx, req.ContentType, req.Tone)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, ErrUnknownContentType) {
		return domain.GeneratedContent{}, err
	}
	util.LoggerFromContext(ctx).Warn("content_generation_failed", "content_type", req.ContentType, "err", err)
	a.metrics.ObserveFallback("content")
	return domain.GeneratedContent{Text: PlaceholderText, Fallback: true}, nil
}
