// Package postqueue holds the editorial queue state machine.
//
// Every function is a pure reducer: it takes a queue snapshot and returns a
// new snapshot, leaving the input untouched. Persistence and locking live in
// the caller.
package postqueue

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"bookpromo/pkg/domain"
)

var (
	// ErrPostNotFound indicates no post with the given id exists in the queue.
	ErrPostNotFound = errors.New("post not found")
	// ErrInvalidTransition indicates the post's status does not allow the action.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Prepend places posts ahead of the existing queue, keeping their order.
func Prepend(q []domain.ScheduledPost, posts []domain.ScheduledPost) []domain.ScheduledPost {
	out := make([]domain.ScheduledPost, 0, len(posts)+len(q))
	out = append(out, posts...)
	return append(out, q...)
}

// Find returns the post with id.
func Find(q []domain.ScheduledPost, id string) (domain.ScheduledPost, bool) {
	for _, p := range q {
		if p.ID == id {
			return p, true
		}
	}
	return domain.ScheduledPost{}, false
}

// Approve moves a DRAFT post to SCHEDULED.
func Approve(q []domain.ScheduledPost, id string) ([]domain.ScheduledPost, domain.ScheduledPost, error) {
	return transition(q, id, domain.StatusDraft, domain.StatusScheduled, nil)
}

// Unapprove moves a SCHEDULED post back to DRAFT.
func Unapprove(q []domain.ScheduledPost, id string) ([]domain.ScheduledPost, domain.ScheduledPost, error) {
	return transition(q, id, domain.StatusScheduled, domain.StatusDraft, nil)
}

// MarkPosted moves a SCHEDULED post to POSTED. POSTED is terminal.
func MarkPosted(q []domain.ScheduledPost, id string, at time.Time) ([]domain.ScheduledPost, domain.ScheduledPost, error) {
	return transition(q, id, domain.StatusScheduled, domain.StatusPosted, func(p *domain.ScheduledPost) {
		postedAt := at.UTC()
		p.PostedAt = &postedAt
	})
}

// SetImage records the media for a post: either an inline URL or an object
// key. Media that is already set is kept.
func SetImage(q []domain.ScheduledPost, id, imageURL, imageKey string) ([]domain.ScheduledPost, domain.ScheduledPost, error) {
	idx := indexOf(q, id)
	if idx < 0 {
		return q, domain.ScheduledPost{}, ErrPostNotFound
	}
	out := clone(q)
	if !out[idx].HasImage() {
		if imageKey != "" {
			out[idx].ImageKey = imageKey
		} else {
			out[idx].ImageURL = imageURL
		}
	}
	return out, out[idx], nil
}

// Delete removes the post with id regardless of its status.
func Delete(q []domain.ScheduledPost, id string) ([]domain.ScheduledPost, error) {
	idx := indexOf(q, id)
	if idx < 0 {
		return q, ErrPostNotFound
	}
	out := make([]domain.ScheduledPost, 0, len(q)-1)
	out = append(out, q[:idx]...)
	return append(out, q[idx+1:]...), nil
}

// Sorted returns a copy ordered by ascending scheduled time. Ties keep queue order.
func Sorted(q []domain.ScheduledPost) []domain.ScheduledPost {
	out := clone(q)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledTime.Before(out[j].ScheduledTime)
	})
	return out
}

func transition(q []domain.ScheduledPost, id string, from, to domain.PostStatus, mutate func(*domain.ScheduledPost)) ([]domain.ScheduledPost, domain.ScheduledPost, error) {
	idx := indexOf(q, id)
	if idx < 0 {
		return q, domain.ScheduledPost{}, ErrPostNotFound
	}
	if q[idx].Status != from {
		return q, q[idx], fmt.Errorf("%w: %s -> %s from %s", ErrInvalidTransition, from, to, q[idx].Status)
	}
	out := clone(q)
	out[idx].Status = to
	if mutate != nil {
		mutate(&out[idx])
	}
	return out, out[idx], nil
}

func indexOf(q []domain.ScheduledPost, id string) int {
	for i := range q {
		if q[i].ID == id {
			return i
		}
	}
	return -1
}

func clone(q []domain.ScheduledPost) []domain.ScheduledPost {
	out := make([]domain.ScheduledPost, len(q))
	copy(out, q)
	return out
}
