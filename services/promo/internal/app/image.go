package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookpromo/internal/metrics"
	"bookpromo/internal/util"
	"bookpromo/pkg/ai"
	"bookpromo/pkg/domain"
	"bookpromo/pkg/postqueue"
	"bookpromo/pkg/store"
)

const imageStyleTemplate = `Create a premium editorial image for a book marketing campaign.
Concept: %s
Style: deep navy and warm gold brand palette, clean architectural lines, soft studio lighting.
Composition: a split-screen comparison contrasting the reader's life before and after applying the book's ideas.
Do not render any text, letters, numbers or logos in the image.`

func styledImagePrompt(concept string) string {
	return fmt.Sprintf(imageStyleTemplate, strings.TrimSpace(concept))
}

func dataURI(img ai.Image) string {
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func (a *App) renderImage(ctx context.Context, concept string) (ai.Image, error) {
	if a.images == nil {
		return ai.Image{}, ErrProviderMissing
	}
	start := time.Now()
	img, err := a.images.GenerateImage(ctx, styledImagePrompt(concept))
	if err == nil && len(img.Data) == 0 {
		err = ai.ErrNoImage
	}
	if err != nil {
		a.observeGeneration("image", metrics.OutcomeError, start)
		return ai.Image{}, err
	}
	a.observeGeneration("image", metrics.OutcomeOK, start)
	return img, nil
}

// GenerateImage runs the image façade and returns an embeddable data URI.
// Failures are logged and yield an empty string.
func (a *App) GenerateImage(ctx context.Context, concept string) string {
	img, err := a.renderImage(ctx, concept)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("image_generation_failed", "err", err)
		a.metrics.ObserveFallback("image")
		return ""
	}
	return dataURI(img)
}

// GeneratePostImage fills in the image of a post from its image prompt.
// A post that already has an image is returned unchanged. With a media store
// the image is uploaded and the post keeps only the object key.
func (a *App) GeneratePostImage(ctx context.Context, workspace, postID string) (domain.ScheduledPost, error) {
	workspace = store.NormalizeWorkspace(workspace)
	post, err := a.findPost(ctx, workspace, postID)
	if err != nil {
		return domain.ScheduledPost{}, err
	}
	if post.HasImage() {
		return a.withMediaURL(ctx, post), nil
	}
	if strings.TrimSpace(post.ImagePrompt) == "" {
		return post, ErrNoImagePrompt
	}

	logger := util.LoggerFromContext(ctx)
	img, err := a.renderImage(ctx, post.ImagePrompt)
	if err != nil {
		logger.Warn("post_image_generation_failed", "post_id", postID, "err", err)
		a.metrics.ObserveFallback("image")
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return post, err
		}
		return post, fmt.Errorf("%w: %w", ErrImageUnavailable, err)
	}

	imageKey := ""
	if a.media != nil {
		key, err := a.media.PutPostImage(ctx, workspace, postID, img.MIMEType, img.Data)
		if err != nil {
			logger.Warn("post_image_upload_failed", "post_id", postID, "err", err)
		} else {
			logger.Info("post_image_uploaded", "post_id", postID, "key", key)
			imageKey = key
		}
	}
	imageURL := ""
	if imageKey == "" {
		imageURL = dataURI(img)
	}

	updated, err := a.mutatePosts(ctx, workspace, func(q []domain.ScheduledPost) ([]domain.ScheduledPost, domain.ScheduledPost, error) {
		return postqueue.SetImage(q, postID, imageURL, imageKey)
	})
	if imageKey != "" && (err != nil || updated.ImageKey != imageKey) {
		// The post was deleted or got its image elsewhere while this one rendered.
		if derr := a.media.DeleteObject(context.WithoutCancel(ctx), imageKey); derr != nil {
			logger.Warn("post_media_cleanup_failed", "post_id", postID, "key", imageKey, "err", derr)
		}
	}
	if err != nil {
		return domain.ScheduledPost{}, err
	}
	return a.withMediaURL(ctx, updated), nil
}
