// Package channels tracks the local connection flag of each publishing platform.
//
// Platforms that share one external account form a Group and always carry the
// same status. Connecting is purely local: no handshake or credential exchange
// takes place.
package channels

import (
	"errors"
	"time"

	"bookpromo/pkg/domain"
)

// ErrUnknownPlatform indicates the platform is not part of the registry.
var ErrUnknownPlatform = errors.New("unknown platform")

// Group is a set of platforms backed by a single external account.
type Group struct {
	Name      string   `json:"name"`
	Platforms []string `json:"platforms"`
}

// DefaultGroups is the fixed platform grouping.
var DefaultGroups = []Group{
	{Name: "LinkedIn", Platforms: []string{domain.PlatformLinkedIn}},
	{Name: "Meta", Platforms: []string{domain.PlatformInstagram, domain.PlatformFacebook}},
	{Name: "Web", Platforms: []string{domain.PlatformOfficialBlog}},
}

// Registry knows the platform set, their grouping and the default handles.
type Registry struct {
	groups  []Group
	handles map[string]string
}

// New builds a registry. Handles map a platform to its display handle;
// platforms without one fall back to their own name.
func New(groups []Group, handles map[string]string) *Registry {
	if len(groups) == 0 {
		groups = DefaultGroups
	}
	h := make(map[string]string, len(handles))
	for k, v := range handles {
		h[k] = v
	}
	return &Registry{groups: groups, handles: h}
}

// Groups returns the configured groups.
func (r *Registry) Groups() []Group {
	return append([]Group(nil), r.groups...)
}

// Platforms returns every platform in group order.
func (r *Registry) Platforms() []string {
	var out []string
	for _, g := range r.groups {
		out = append(out, g.Platforms...)
	}
	return out
}

// GroupOf returns the group containing platform.
func (r *Registry) GroupOf(platform string) (Group, bool) {
	for _, g := range r.groups {
		for _, p := range g.Platforms {
			if p == platform {
				return g, true
			}
		}
	}
	return Group{}, false
}

// Defaults returns one DISCONNECTED account per platform.
func (r *Registry) Defaults() []domain.ChannelAccount {
	platforms := r.Platforms()
	out := make([]domain.ChannelAccount, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, domain.ChannelAccount{
			Platform:      p,
			DisplayHandle: r.handle(p),
			Status:        domain.ChannelDisconnected,
		})
	}
	return out
}

// Restore merges persisted accounts over the defaults so that every platform
// has exactly one account. Persisted entries for unknown platforms are dropped.
func (r *Registry) Restore(persisted []domain.ChannelAccount) []domain.ChannelAccount {
	byPlatform := make(map[string]domain.ChannelAccount, len(persisted))
	for _, acc := range persisted {
		byPlatform[acc.Platform] = acc
	}
	out := r.Defaults()
	for i, def := range out {
		acc, ok := byPlatform[def.Platform]
		if !ok {
			continue
		}
		if acc.Status != domain.ChannelConnected {
			acc.Status = domain.ChannelDisconnected
		}
		if acc.DisplayHandle == "" {
			acc.DisplayHandle = def.DisplayHandle
		}
		out[i] = acc
	}
	return out
}

// Toggle flips the status of platform and applies the new status to every
// platform in its group. The input slice is not modified.
func (r *Registry) Toggle(accounts []domain.ChannelAccount, platform string, now time.Time) ([]domain.ChannelAccount, error) {
	group, ok := r.GroupOf(platform)
	if !ok {
		return accounts, ErrUnknownPlatform
	}
	out := r.Restore(accounts)
	next := domain.ChannelConnected
	if IsConnected(out, platform) {
		next = domain.ChannelDisconnected
	}
	synced := now.UTC()
	for i := range out {
		if !contains(group.Platforms, out[i].Platform) {
			continue
		}
		out[i].Status = next
		if next == domain.ChannelConnected {
			ts := synced
			out[i].LastSyncedAt = &ts
		}
	}
	return out, nil
}

// IsConnected reports whether platform has a CONNECTED account.
func IsConnected(accounts []domain.ChannelAccount, platform string) bool {
	for _, acc := range accounts {
		if acc.Platform == platform {
			return acc.Status == domain.ChannelConnected
		}
	}
	return false
}

func (r *Registry) handle(platform string) string {
	if h, ok := r.handles[platform]; ok && h != "" {
		return h
	}
	return platform
}

func contains(items []string, v string) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}
