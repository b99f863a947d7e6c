package app

import (
	"context"
	"fmt"
	"time"

	"bookpromo/internal/util"
	"bookpromo/pkg/channels"
	"bookpromo/pkg/domain"
	"bookpromo/pkg/notify"
	"bookpromo/pkg/postqueue"
	"bookpromo/pkg/store"
)

// Deploy simulates publishing a SCHEDULED post to its connected platform.
// Preconditions are checked before the simulated latency starts; once the
// wait completes the post becomes POSTED. Cancelling ctx during the wait
// leaves the post untouched.
func (a *App) Deploy(ctx context.Context, workspace, postID string) (domain.ScheduledPost, error) {
	workspace = store.NormalizeWorkspace(workspace)
	logger := util.LoggerFromContext(ctx)

	post, err := a.findPost(ctx, workspace, postID)
	if err != nil {
		return domain.ScheduledPost{}, err
	}
	persisted, err := a.state.LoadChannels(ctx, workspace)
	if err != nil {
		return domain.ScheduledPost{}, err
	}
	if !channels.IsConnected(a.registry.Restore(persisted), post.Platform) {
		a.countDeploy(post.Platform, "not_connected")
		return post, fmt.Errorf("%w: %s", ErrNotConnected, post.Platform)
	}
	if post.Status != domain.StatusScheduled {
		a.countDeploy(post.Platform, "rejected")
		return post, fmt.Errorf("%w: post is %s", ErrInvalidTransition, post.Status)
	}

	if a.deployDelay > 0 {
		timer := time.NewTimer(a.deployDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			a.countDeploy(post.Platform, "cancelled")
			return post, ctx.Err()
		case <-timer.C:
		}
	}

	postedAt := a.now()
	posted, err := a.mutatePosts(ctx, workspace, func(q []domain.ScheduledPost) ([]domain.ScheduledPost, domain.ScheduledPost, error) {
		return postqueue.MarkPosted(q, postID, postedAt)
	})
	if err != nil {
		a.countDeploy(post.Platform, "rejected")
		return domain.ScheduledPost{}, err
	}
	a.countDeploy(posted.Platform, "posted")
	a.countTransition(domain.StatusPosted)
	logger.Info("post_deployed", "post_id", postID, "platform", posted.Platform)

	event := notify.Event{
		ID:        a.newID(),
		Type:      notify.EventPostPosted,
		Workspace: workspace,
		PostID:    posted.ID,
		Platform:  posted.Platform,
		At:        postedAt,
	}
	if err := a.notifier.Publish(context.WithoutCancel(ctx), event); err != nil {
		logger.Warn("post_event_publish_failed", "post_id", postID, "err", err)
		if a.metrics != nil {
			a.metrics.NotifyFailures.Inc()
		}
	}
	return a.withMediaURL(ctx, posted), nil
}

func (a *App) countDeploy(platform, result string) {
	if a.metrics != nil {
		a.metrics.Deploys.WithLabelValues(platform, result).Inc()
	}
}
