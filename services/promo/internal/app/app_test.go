package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bookpromo/pkg/ai"
	"bookpromo/pkg/domain"
	"bookpromo/pkg/notify"
	"bookpromo/pkg/store"
)

var testNow = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

var testBook = domain.BookProfile{
	Title:          "Rich By Design",
	Subtitle:       "The 7 Laws of Money",
	Author:         "Morgan Haze",
	Description:    "A blueprint for building wealth on purpose.",
	TargetAudience: "Professionals who earn well but still feel behind.",
	KeyTakeaways:   []string{"Pay yourself first.", "Follow the 70-10-10-10 rule."},
}

type fakeText struct {
	mu        sync.Mutex
	responses []string
	err       error
	requests  []ai.Request
}

func (f *fakeText) GenerateText(_ context.Context, req ai.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func (f *fakeText) lastRequest(t *testing.T) ai.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatalf("no provider request recorded")
	}
	return f.requests[len(f.requests)-1]
}

type fakeImages struct {
	img    ai.Image
	err    error
	calls  int
	prompt string
}

func (f *fakeImages) GenerateImage(_ context.Context, prompt string) (ai.Image, error) {
	f.calls++
	f.prompt = prompt
	return f.img, f.err
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

type testEnv struct {
	app      *App
	state    *store.StateStore
	text     *fakeText
	images   *fakeImages
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T, opts ...func(*Config)) *testEnv {
	t.Helper()
	env := &testEnv{
		state:    store.NewStateStore(store.NewMemoryStore()),
		text:     &fakeText{},
		images:   &fakeImages{},
		notifier: &recordingNotifier{},
	}
	seq := 0
	cfg := Config{
		Book:       testBook,
		Text:       env.text,
		Images:     env.images,
		TextModel:  "text-model",
		ImageModel: "image-model",
		State:      env.state,
		Notifier:   env.notifier,
		Now:        func() time.Time { return testNow },
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	env.app = a
	return env
}

func (e *testEnv) seedPosts(t *testing.T, workspace string, posts ...domain.ScheduledPost) {
	t.Helper()
	if err := e.state.SavePosts(context.Background(), workspace, posts); err != nil {
		t.Fatalf("seed posts: %v", err)
	}
}

func (e *testEnv) connect(t *testing.T, workspace, platform string) {
	t.Helper()
	if _, err := e.app.ToggleChannel(context.Background(), workspace, platform); err != nil {
		t.Fatalf("toggle %s: %v", platform, err)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	state := store.NewStateStore(store.NewMemoryStore())
	if _, err := New(Config{Book: testBook}); err == nil {
		t.Fatalf("expected error without state store")
	}
	if _, err := New(Config{State: state}); err == nil {
		t.Fatalf("expected error without book title")
	}
	if _, err := New(Config{State: state, Book: testBook, DeployDelay: -time.Second}); err == nil {
		t.Fatalf("expected error for negative deploy delay")
	}
}

func TestStatusAndPresets(t *testing.T) {
	env := newTestEnv(t)
	st := env.app.Status()
	if st.Status != "active" || st.TextModel != "text-model" || !st.Images || st.MediaStore {
		t.Fatalf("unexpected status: %+v", st)
	}

	missing := newTestEnv(t, func(c *Config) { c.Text = nil; c.Images = nil })
	if st := missing.app.Status(); st.Status != "missing" || st.Images {
		t.Fatalf("unexpected status without provider: %+v", st)
	}

	p := env.app.Presets()
	if len(p.ContentTypes) != 5 || len(p.Tones) != 4 || p.DefaultTone != domain.DefaultTone || len(p.Groups) != 3 {
		t.Fatalf("unexpected presets: %+v", p)
	}
}

func TestWorkspacesAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedPosts(t, "a", domain.ScheduledPost{ID: "p1", Status: domain.StatusDraft, ScheduledTime: testNow})

	posts, err := env.app.ListPosts(ctx, "b")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("workspace b sees %d posts", len(posts))
	}
	env.connect(t, "a", domain.PlatformLinkedIn)
	accounts, err := env.app.ListChannels(ctx, "b")
	if err != nil {
		t.Fatalf("list channels: %v", err)
	}
	for _, acc := range accounts {
		if acc.Status != domain.ChannelDisconnected {
			t.Fatalf("workspace b sees connected %s", acc.Platform)
		}
	}
}
