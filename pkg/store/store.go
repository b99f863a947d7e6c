package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"bookpromo/pkg/domain"
)

// Blob names stored per workspace.
const (
	BlobPosts    = "posts"
	BlobChannels = "channels"
)

// DefaultWorkspace is used when a client does not identify its workspace.
const DefaultWorkspace = "default"

// BlobStore persists named JSON blobs per workspace. Writes replace the
// whole blob; there are no partial updates.
type BlobStore interface {
	Load(ctx context.Context, workspace, name string) ([]byte, bool, error)
	Save(ctx context.Context, workspace, name string, data []byte) error
}

// StateStore reads and writes the typed workspace state on top of a BlobStore.
//
// Missing or corrupt blobs load as empty state; the problem is logged and not
// returned to the caller. Backend errors (connection failures) are returned.
type StateStore struct {
	blobs BlobStore
}

// NewStateStore wraps a BlobStore.
func NewStateStore(blobs BlobStore) *StateStore {
	return &StateStore{blobs: blobs}
}

// LoadPosts returns the persisted queue in stored order.
func (s *StateStore) LoadPosts(ctx context.Context, workspace string) ([]domain.ScheduledPost, error) {
	return load[[]domain.ScheduledPost](ctx, s.blobs, workspace, BlobPosts)
}

// SavePosts replaces the persisted queue.
func (s *StateStore) SavePosts(ctx context.Context, workspace string, posts []domain.ScheduledPost) error {
	if posts == nil {
		posts = []domain.ScheduledPost{}
	}
	return s.save(ctx, workspace, BlobPosts, posts)
}

// LoadChannels returns the persisted channel accounts (possibly empty).
func (s *StateStore) LoadChannels(ctx context.Context, workspace string) ([]domain.ChannelAccount, error) {
	return load[[]domain.ChannelAccount](ctx, s.blobs, workspace, BlobChannels)
}

// SaveChannels replaces the persisted channel accounts.
func (s *StateStore) SaveChannels(ctx context.Context, workspace string, accounts []domain.ChannelAccount) error {
	if accounts == nil {
		accounts = []domain.ChannelAccount{}
	}
	return s.save(ctx, workspace, BlobChannels, accounts)
}

// load decodes a blob into a fresh T. A blob that fails to decode yields the
// zero T, never a partially filled one.
func load[T any](ctx context.Context, blobs BlobStore, workspace, name string) (T, error) {
	var zero T
	workspace = NormalizeWorkspace(workspace)
	data, ok, err := blobs.Load(ctx, workspace, name)
	if err != nil {
		return zero, fmt.Errorf("load %s: %w", name, err)
	}
	if !ok || len(data) == 0 {
		return zero, nil
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		slog.Warn("state_blob_corrupt", "workspace", workspace, "blob", name, "err", err)
		return zero, nil
	}
	return out, nil
}

func (s *StateStore) save(ctx context.Context, workspace, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.blobs.Save(ctx, NormalizeWorkspace(workspace), name, data); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// NormalizeWorkspace trims the id and falls back to DefaultWorkspace.
func NormalizeWorkspace(workspace string) string {
	workspace = strings.TrimSpace(workspace)
	if workspace == "" {
		return DefaultWorkspace
	}
	return workspace
}
