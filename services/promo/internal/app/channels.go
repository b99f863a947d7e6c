package app

import (
	"context"

	"bookpromo/internal/util"
	"bookpromo/pkg/channels"
	"bookpromo/pkg/domain"
	"bookpromo/pkg/store"
)

// ListChannels returns one account per platform, restored from workspace state.
func (a *App) ListChannels(ctx context.Context, workspace string) ([]domain.ChannelAccount, error) {
	persisted, err := a.state.LoadChannels(ctx, store.NormalizeWorkspace(workspace))
	if err != nil {
		return nil, err
	}
	return a.registry.Restore(persisted), nil
}

// ChannelGroups lists the platform groups that share one external account.
func (a *App) ChannelGroups() []channels.Group {
	return a.registry.Groups()
}

// ToggleChannel flips platform and every platform in its group, then persists
// the whole registry.
func (a *App) ToggleChannel(ctx context.Context, workspace, platform string) ([]domain.ChannelAccount, error) {
	workspace = store.NormalizeWorkspace(workspace)
	unlock := a.locks.lock(workspace)
	defer unlock()

	persisted, err := a.state.LoadChannels(ctx, workspace)
	if err != nil {
		return nil, err
	}
	accounts, err := a.registry.Toggle(persisted, platform, a.now())
	if err != nil {
		return nil, err
	}
	if err := a.state.SaveChannels(ctx, workspace, accounts); err != nil {
		return nil, err
	}
	connected := channels.IsConnected(accounts, platform)
	status := domain.ChannelDisconnected
	if connected {
		status = domain.ChannelConnected
	}
	if a.metrics != nil {
		a.metrics.ChannelToggles.WithLabelValues(platform, string(status)).Inc()
	}
	util.LoggerFromContext(ctx).Info("channel_toggled", "platform", platform, "status", status)
	return accounts, nil
}
