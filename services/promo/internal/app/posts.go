package app

import (
	"context"

	"bookpromo/internal/util"
	"bookpromo/pkg/domain"
	"bookpromo/pkg/postqueue"
	"bookpromo/pkg/store"
)

// ListPosts returns the workspace queue in display order (ascending scheduled time).
func (a *App) ListPosts(ctx context.Context, workspace string) ([]domain.ScheduledPost, error) {
	posts, err := a.state.LoadPosts(ctx, store.NormalizeWorkspace(workspace))
	if err != nil {
		return nil, err
	}
	return a.withMediaURLs(ctx, postqueue.Sorted(posts)), nil
}

// ApprovePost moves a DRAFT post to SCHEDULED.
func (a *App) ApprovePost(ctx context.Context, workspace, id string) (domain.ScheduledPost, error) {
	post, err := a.mutatePosts(ctx, workspace, func(q []domain.ScheduledPost) ([]domain.ScheduledPost, domain.ScheduledPost, error) {
		return postqueue.Approve(q, id)
	})
	if err != nil {
		return domain.ScheduledPost{}, err
	}
	a.countTransition(domain.StatusScheduled)
	return a.withMediaURL(ctx, post), nil
}

// UnapprovePost moves a SCHEDULED post back to DRAFT.
func (a *App) UnapprovePost(ctx context.Context, workspace, id string) (domain.ScheduledPost, error) {
	post, err := a.mutatePosts(ctx, workspace, func(q []domain.ScheduledPost) ([]domain.ScheduledPost, domain.ScheduledPost, error) {
		return postqueue.Unapprove(q, id)
	})
	if err != nil {
		return domain.ScheduledPost{}, err
	}
	a.countTransition(domain.StatusDraft)
	return a.withMediaURL(ctx, post), nil
}

// DeletePost removes a post in any status, together with its stored media.
func (a *App) DeletePost(ctx context.Context, workspace, id string) error {
	workspace = store.NormalizeWorkspace(workspace)
	deleted, err := a.mutatePosts(ctx, workspace, func(q []domain.ScheduledPost) ([]domain.ScheduledPost, domain.ScheduledPost, error) {
		post, ok := postqueue.Find(q, id)
		if !ok {
			return nil, domain.ScheduledPost{}, ErrPostNotFound
		}
		next, err := postqueue.Delete(q, id)
		return next, post, err
	})
	if err != nil {
		return err
	}
	if a.media != nil && deleted.ImageKey != "" {
		if err := a.media.DeleteObject(ctx, deleted.ImageKey); err != nil {
			util.LoggerFromContext(ctx).Warn("post_media_cleanup_failed", "post_id", id, "err", err)
		}
	}
	return nil
}

func (a *App) countTransition(to domain.PostStatus) {
	if a.metrics != nil {
		a.metrics.PostTransitions.WithLabelValues(string(to)).Inc()
	}
}
