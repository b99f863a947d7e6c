package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookpromo/pkg/domain"
	"bookpromo/pkg/notify"
)

func TestDeployRequiresConnectedChannel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedPosts(t, "ws", seededPost("p1", 0, domain.StatusScheduled))

	_, err := env.app.Deploy(ctx, "ws", "p1")
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
	stored, _ := env.state.LoadPosts(ctx, "ws")
	if stored[0].Status != domain.StatusScheduled || stored[0].PostedAt != nil {
		t.Fatalf("status changed on rejected deploy: %+v", stored[0])
	}
	if len(env.notifier.events) != 0 {
		t.Fatalf("rejected deploy published an event")
	}
}

func TestDeployConnectedScheduledPost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedPosts(t, "ws", seededPost("p1", 0, domain.StatusScheduled))
	env.connect(t, "ws", domain.PlatformLinkedIn)

	posted, err := env.app.Deploy(ctx, "ws", "p1")
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if posted.Status != domain.StatusPosted || posted.PostedAt == nil || !posted.PostedAt.Equal(testNow) {
		t.Fatalf("unexpected post: %+v", posted)
	}
	stored, _ := env.state.LoadPosts(ctx, "ws")
	if stored[0].Status != domain.StatusPosted {
		t.Fatalf("posted status not persisted")
	}

	if len(env.notifier.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(env.notifier.events))
	}
	ev := env.notifier.events[0]
	if ev.Type != notify.EventPostPosted || ev.PostID != "p1" || ev.Workspace != "ws" || ev.Platform != domain.PlatformLinkedIn {
		t.Fatalf("unexpected event: %+v", ev)
	}

	// POSTED is terminal.
	if _, err := env.app.Deploy(ctx, "ws", "p1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("redeploy err = %v", err)
	}
	if _, err := env.app.UnapprovePost(ctx, "ws", "p1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("unapprove posted err = %v", err)
	}
	if _, err := env.app.ApprovePost(ctx, "ws", "p1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("approve posted err = %v", err)
	}
}

func TestDeployDraftIsRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seedPosts(t, "ws", seededPost("p1", 0, domain.StatusDraft))
	env.connect(t, "ws", domain.PlatformLinkedIn)

	if _, err := env.app.Deploy(context.Background(), "ws", "p1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestDeployUnknownPostAndPlatform(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.app.Deploy(ctx, "ws", "nope"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("err = %v, want ErrPostNotFound", err)
	}
	p := seededPost("p1", 0, domain.StatusScheduled)
	p.Platform = "Myspace"
	env.seedPosts(t, "ws", p)
	if _, err := env.app.Deploy(ctx, "ws", "p1"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestDeployViaMetaGroup(t *testing.T) {
	env := newTestEnv(t)
	p := seededPost("p1", 0, domain.StatusScheduled)
	p.Platform = domain.PlatformFacebook
	env.seedPosts(t, "ws", p)
	env.connect(t, "ws", domain.PlatformInstagram)

	if _, err := env.app.Deploy(context.Background(), "ws", "p1"); err != nil {
		t.Fatalf("connecting Instagram should allow Facebook deploys: %v", err)
	}
}

func TestDeployCancelledDuringDelay(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.DeployDelay = time.Hour })
	env.seedPosts(t, "ws", seededPost("p1", 0, domain.StatusScheduled))
	env.connect(t, "ws", domain.PlatformLinkedIn)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := env.app.Deploy(ctx, "ws", "p1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	stored, _ := env.state.LoadPosts(context.Background(), "ws")
	if stored[0].Status != domain.StatusScheduled {
		t.Fatalf("cancelled deploy changed status to %s", stored[0].Status)
	}
}

func TestDeployWaitsForDelay(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.DeployDelay = 30 * time.Millisecond })
	env.seedPosts(t, "ws", seededPost("p1", 0, domain.StatusScheduled))
	env.connect(t, "ws", domain.PlatformLinkedIn)

	start := time.Now()
	if _, err := env.app.Deploy(context.Background(), "ws", "p1"); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("deploy returned after %v, before the simulated latency", elapsed)
	}
}

func TestDeployNotifierFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.err = errors.New("broker down")
	env.seedPosts(t, "ws", seededPost("p1", 0, domain.StatusScheduled))
	env.connect(t, "ws", domain.PlatformLinkedIn)

	posted, err := env.app.Deploy(context.Background(), "ws", "p1")
	if err != nil || posted.Status != domain.StatusPosted {
		t.Fatalf("posted=%+v err=%v", posted, err)
	}
}
