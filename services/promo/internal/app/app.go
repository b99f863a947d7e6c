package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookpromo/internal/metrics"
	"bookpromo/pkg/ai"
	"bookpromo/pkg/channels"
	"bookpromo/pkg/domain"
	"bookpromo/pkg/notify"
	"bookpromo/pkg/postqueue"
	"bookpromo/pkg/storage"
	"bookpromo/pkg/store"
)

// Config holds runtime dependencies for the core application.
type Config struct {
	Book domain.BookProfile
	// Text and Images may be nil; generation then degrades to the placeholders.
	Text       ai.TextGenerator
	Images     ai.ImageGenerator
	TextModel  string
	ImageModel string

	State    *store.StateStore
	Channels *channels.Registry
	// Media is optional. When nil post images are stored inline as data URIs.
	Media    *storage.MediaStore
	Notifier notify.Notifier
	Metrics  *metrics.Metrics

	DeployDelay time.Duration
	Now         func() time.Time
	NewID       func() string
}

// App is the core application service wiring the generation façades to the
// per-workspace queue and channel state.
type App struct {
	book       domain.BookProfile
	text       ai.TextGenerator
	images     ai.ImageGenerator
	textModel  string
	imageModel string

	state    *store.StateStore
	registry *channels.Registry
	media    *storage.MediaStore
	notifier notify.Notifier
	metrics  *metrics.Metrics

	deployDelay time.Duration
	now         func() time.Time
	newID       func() string
	locks       *workspaceLocks
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.State == nil {
		return nil, fmt.Errorf("state store required")
	}
	if strings.TrimSpace(cfg.Book.Title) == "" {
		return nil, fmt.Errorf("book title required")
	}
	if cfg.DeployDelay < 0 {
		return nil, fmt.Errorf("deploy delay must not be negative")
	}
	registry := cfg.Channels
	if registry == nil {
		registry = channels.New(nil, nil)
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &App{
		book:        cfg.Book,
		text:        cfg.Text,
		images:      cfg.Images,
		textModel:   cfg.TextModel,
		imageModel:  cfg.ImageModel,
		state:       cfg.State,
		registry:    registry,
		media:       cfg.Media,
		notifier:    notifier,
		metrics:     cfg.Metrics,
		deployDelay: cfg.DeployDelay,
		now:         func() time.Time { return now().UTC() },
		newID:       newID,
		locks:       newWorkspaceLocks(),
	}, nil
}

// Book returns the configured book profile.
func (a *App) Book() domain.BookProfile {
	return a.book
}

// mutatePosts runs fn on the workspace queue under the workspace lock and
// saves the result when fn succeeds.
func (a *App) mutatePosts(ctx context.Context, workspace string, fn func([]domain.ScheduledPost) ([]domain.ScheduledPost, domain.ScheduledPost, error)) (domain.ScheduledPost, error) {
	workspace = store.NormalizeWorkspace(workspace)
	unlock := a.locks.lock(workspace)
	defer unlock()

	posts, err := a.state.LoadPosts(ctx, workspace)
	if err != nil {
		return domain.ScheduledPost{}, err
	}
	next, post, err := fn(posts)
	if err != nil {
		return domain.ScheduledPost{}, err
	}
	if err := a.state.SavePosts(ctx, workspace, next); err != nil {
		return domain.ScheduledPost{}, err
	}
	return post, nil
}

func (a *App) findPost(ctx context.Context, workspace, id string) (domain.ScheduledPost, error) {
	posts, err := a.state.LoadPosts(ctx, workspace)
	if err != nil {
		return domain.ScheduledPost{}, err
	}
	post, ok := postqueue.Find(posts, id)
	if !ok {
		return domain.ScheduledPost{}, ErrPostNotFound
	}
	return post, nil
}

func (a *App) observeGeneration(kind, outcome string, start time.Time) {
	a.metrics.ObserveGeneration(kind, outcome, time.Since(start))
}
