package app

import (
	"context"

	"bookpromo/internal/util"
	"bookpromo/pkg/domain"
)

// withMediaURL presigns the image of a post backed by an object key. The
// stored post never carries the signed URL.
func (a *App) withMediaURL(ctx context.Context, post domain.ScheduledPost) domain.ScheduledPost {
	if post.ImageKey == "" || a.media == nil {
		return post
	}
	url, err := a.media.URL(ctx, post.ImageKey)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("post_image_presign_failed", "post_id", post.ID, "key", post.ImageKey, "err", err)
		return post
	}
	post.ImageURL = url
	return post
}

func (a *App) withMediaURLs(ctx context.Context, posts []domain.ScheduledPost) []domain.ScheduledPost {
	for i := range posts {
		posts[i] = a.withMediaURL(ctx, posts[i])
	}
	return posts
}
