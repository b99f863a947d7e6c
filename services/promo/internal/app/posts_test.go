package app

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"bookpromo/pkg/domain"
)

func seededPost(id string, day int, status domain.PostStatus) domain.ScheduledPost {
	return domain.ScheduledPost{
		ID:            id,
		Type:          domain.ContentSocialPost,
		Platform:      domain.PlatformLinkedIn,
		Content:       "content " + id,
		ScheduledTime: testNow.Add(time.Duration(day) * 24 * time.Hour),
		Status:        status,
	}
}

func TestApproveUnapprove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedPosts(t, "ws", seededPost("p1", 0, domain.StatusDraft))

	p, err := env.app.ApprovePost(ctx, "ws", "p1")
	if err != nil || p.Status != domain.StatusScheduled {
		t.Fatalf("approve: %+v %v", p, err)
	}
	if _, err := env.app.ApprovePost(ctx, "ws", "p1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double approve err = %v", err)
	}
	p, err = env.app.UnapprovePost(ctx, "ws", "p1")
	if err != nil || p.Status != domain.StatusDraft {
		t.Fatalf("unapprove: %+v %v", p, err)
	}
	stored, _ := env.state.LoadPosts(ctx, "ws")
	if stored[0].Status != domain.StatusDraft {
		t.Fatalf("status not persisted: %s", stored[0].Status)
	}
	if _, err := env.app.ApprovePost(ctx, "ws", "missing"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("unknown id err = %v", err)
	}
}

func TestDeletePostRemovesExactlyOne(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedPosts(t, "ws",
		seededPost("a", 3, domain.StatusDraft),
		seededPost("b", 1, domain.StatusScheduled),
		seededPost("c", 2, domain.StatusPosted),
		seededPost("d", 0, domain.StatusDraft),
	)
	before, _ := env.app.ListPosts(ctx, "ws")

	if err := env.app.DeletePost(ctx, "ws", "c"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	after, err := env.app.ListPosts(ctx, "ws")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var want []domain.ScheduledPost
	for _, p := range before {
		if p.ID != "c" {
			want = append(want, p)
		}
	}
	if !reflect.DeepEqual(after, want) {
		t.Fatalf("remaining posts changed:\n got  %+v\n want %+v", after, want)
	}
	if err := env.app.DeletePost(ctx, "ws", "c"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestListPostsSortsByScheduledTime(t *testing.T) {
	env := newTestEnv(t)
	env.seedPosts(t, "ws", seededPost("late", 5, domain.StatusDraft), seededPost("early", 0, domain.StatusDraft))
	posts, err := env.app.ListPosts(context.Background(), "ws")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if posts[0].ID != "early" || posts[1].ID != "late" {
		t.Fatalf("unexpected order: %s, %s", posts[0].ID, posts[1].ID)
	}
}
