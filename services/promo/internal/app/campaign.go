package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"bookpromo/internal/metrics"
	"bookpromo/internal/util"
	"bookpromo/pkg/ai"
	"bookpromo/pkg/domain"
	"bookpromo/pkg/postqueue"
	"bookpromo/pkg/store"
)

const (
	MinCampaignDays = 1
	MaxCampaignDays = 30
)

// PlannedPost is one element of a provider campaign document.
type PlannedPost struct {
	Type        domain.ContentType `json:"type"`
	Platform    string             `json:"platform"`
	Content     string             `json:"content"`
	DayOffset   int                `json:"dayOffset"`
	Headline    string             `json:"headline"`
	ImagePrompt string             `json:"imagePrompt,omitempty"`
}

const campaignSystemPrompt = "You are a book launch campaign planner. You answer only with the requested JSON array."

func campaignSchema() *ai.Schema {
	types := make([]string, 0, len(domain.ContentTypes))
	for _, t := range domain.ContentTypes {
		types = append(types, string(t))
	}
	return &ai.Schema{
		Type: ai.TypeArray,
		Items: &ai.Schema{
			Type: ai.TypeObject,
			Properties: map[string]*ai.Schema{
				"type":        {Type: ai.TypeString, Enum: types},
				"platform":    {Type: ai.TypeString},
				"content":     {Type: ai.TypeString},
				"dayOffset":   {Type: ai.TypeInteger, Description: "Days from today, starting at 0."},
				"headline":    {Type: ai.TypeString},
				"imagePrompt": {Type: ai.TypeString},
			},
			Required: []string{"type", "platform", "content", "dayOffset", "headline"},
		},
	}
}

func buildCampaignPrompt(book domain.BookProfile, days int, platforms []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan a %d-day multi-platform promotion campaign for the book %q by %s.\n\n", days, book.Title, book.Author)
	fmt.Fprintf(&b, "BOOK DESCRIPTION: %s\n", book.Description)
	fmt.Fprintf(&b, "TARGET AUDIENCE: %s\n", book.TargetAudience)
	if len(book.KeyTakeaways) > 0 {
		b.WriteString("KEY TAKEAWAYS:\n")
		for _, t := range book.KeyTakeaways {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}
	fmt.Fprintf(&b, "\nPLATFORMS: %s\n\n", strings.Join(platforms, ", "))
	b.WriteString("Return a JSON array with one element per post. For each post:\n")
	fmt.Fprintf(&b, "- dayOffset is the 0-based day of the campaign, from 0 to %d.\n", days-1)
	b.WriteString("- platform is one of the platforms above.\n")
	b.WriteString("- type is the content type that suits the platform.\n")
	b.WriteString("- headline is a short internal title; content is the ready-to-publish text in Markdown.\n")
	b.WriteString("- imagePrompt optionally describes a visual for image-led platforms.\n")
	return b.String()
}

// Plan asks the provider for a campaign of the given length and validates the
// returned document. It does not touch workspace state.
func (a *App) Plan(ctx context.Context, days int) ([]PlannedPost, error) {
	if days < MinCampaignDays || days > MaxCampaignDays {
		return nil, ErrInvalidDays
	}
	if a.text == nil {
		return nil, fmt.Errorf("%w: %w", ErrPlanningFailed, ErrProviderMissing)
	}
	start := time.Now()
	raw, err := a.text.GenerateText(ctx, ai.Request{
		SystemPrompt: campaignSystemPrompt,
		UserPrompt:   buildCampaignPrompt(a.book, days, a.registry.Platforms()),
		Schema:       campaignSchema(),
	})
	if err != nil {
		a.observeGeneration("campaign", metrics.OutcomeError, start)
		return nil, fmt.Errorf("%w: %w", ErrPlanningFailed, err)
	}
	planned, err := ParsePlan(raw)
	if err != nil {
		a.observeGeneration("campaign", metrics.OutcomeError, start)
		return nil, err
	}
	a.observeGeneration("campaign", metrics.OutcomeOK, start)
	return planned, nil
}

// ParsePlan decodes and validates a campaign document. Offsets are not
// range-checked and duplicates are kept.
func ParsePlan(raw string) ([]PlannedPost, error) {
	doc := []byte(ai.ExtractJSON(raw))
	if !json.Valid(doc) {
		return nil, fmt.Errorf("%w: response is not JSON", ErrPlanningFailed)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(doc, &elems); err != nil || elems == nil {
		return nil, &SchemaViolation{Index: -1, Reason: "expected a JSON array"}
	}
	out := make([]PlannedPost, 0, len(elems))
	for i, elem := range elems {
		post, err := parsePlannedPost(i, elem)
		if err != nil {
			return nil, err
		}
		out = append(out, post)
	}
	return out, nil
}

// plannedPostDoc is the wire shape of one campaign element. Pointers tell a
// missing key apart from an empty value: headline must be present but may be
// empty.
type plannedPostDoc struct {
	Type        *string  `json:"type" validate:"required,notblank,oneof=SOCIAL_POST EMAIL_NEWSLETTER BLOG_OUTLINE BLOG_FULL AD_COPY"`
	Platform    *string  `json:"platform" validate:"required,notblank"`
	Content     *string  `json:"content" validate:"required,notblank"`
	DayOffset   *float64 `json:"dayOffset" validate:"required,integral"`
	Headline    *string  `json:"headline" validate:"required"`
	ImagePrompt *string  `json:"imagePrompt"`
}

var planValidator = newPlanValidator()

func newPlanValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	// JSON numbers decode as float64; day offsets must be whole and fit an int32.
	if err := v.RegisterValidation("integral", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return f == math.Trunc(f) && math.Abs(f) <= math.MaxInt32
	}); err != nil {
		panic(err)
	}
	return v
}

func parsePlannedPost(index int, elem json.RawMessage) (PlannedPost, error) {
	if trimmed := bytes.TrimSpace(elem); len(trimmed) == 0 || trimmed[0] != '{' {
		return PlannedPost{}, &SchemaViolation{Index: index, Reason: "expected an object"}
	}
	var doc plannedPostDoc
	if err := json.Unmarshal(elem, &doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			reason := "expected a string"
			if typeErr.Field == "dayOffset" {
				reason = "expected an integer"
			}
			return PlannedPost{}, &SchemaViolation{Index: index, Field: typeErr.Field, Reason: reason}
		}
		return PlannedPost{}, &SchemaViolation{Index: index, Reason: err.Error()}
	}
	if err := planValidator.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return PlannedPost{}, fmt.Errorf("%w: %w", ErrPlanningFailed, err)
		}
		fe := verrs[0]
		return PlannedPost{}, &SchemaViolation{Index: index, Field: fe.Field(), Reason: violationReason(fe, doc)}
	}

	post := PlannedPost{
		Type:      domain.ContentType(*doc.Type),
		Platform:  *doc.Platform,
		Content:   *doc.Content,
		DayOffset: int(*doc.DayOffset),
		Headline:  *doc.Headline,
	}
	if doc.ImagePrompt != nil {
		post.ImagePrompt = *doc.ImagePrompt
	}
	return post, nil
}

func violationReason(fe validator.FieldError, doc plannedPostDoc) string {
	switch fe.Tag() {
	case "required":
		return "missing"
	case "notblank":
		return "must not be empty"
	case "oneof":
		return fmt.Sprintf("unknown content type %q", *doc.Type)
	case "integral":
		return "expected an integer"
	default:
		return "failed " + fe.Tag()
	}
}

// PlanCampaign plans a campaign and prepends the resulting DRAFT posts to the
// workspace queue. The returned posts are in provider order.
func (a *App) PlanCampaign(ctx context.Context, workspace string, days int) ([]domain.ScheduledPost, error) {
	planned, err := a.Plan(ctx, days)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("campaign_planning_failed", "days", days, "err", err)
		return nil, err
	}

	now := a.now()
	posts := make([]domain.ScheduledPost, 0, len(planned))
	for _, p := range planned {
		posts = append(posts, domain.ScheduledPost{
			ID:            a.newID(),
			Type:          p.Type,
			Platform:      p.Platform,
			Headline:      p.Headline,
			Content:       p.Content,
			ImagePrompt:   strings.TrimSpace(p.ImagePrompt),
			ScheduledTime: now.Add(time.Duration(p.DayOffset) * 24 * time.Hour),
			Status:        domain.StatusDraft,
		})
	}

	_, err = a.mutatePosts(ctx, store.NormalizeWorkspace(workspace), func(q []domain.ScheduledPost) ([]domain.ScheduledPost, domain.ScheduledPost, error) {
		return postqueue.Prepend(q, posts), domain.ScheduledPost{}, nil
	})
	if err != nil {
		return nil, err
	}
	if a.metrics != nil {
		a.metrics.PostsPlanned.Add(float64(len(posts)))
	}
	util.LoggerFromContext(ctx).Info("campaign_planned", "days", days, "posts", len(posts))
	return posts, nil
}
