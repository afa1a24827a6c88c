package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"trading-signalbot/internal/settings"
)

// ConfigStore fronts the settings store for HTTP callers and tells connected
// clients when settings change.
type ConfigStore struct {
	hub   *Hub
	store *settings.Store
}

// NewConfigStore creates a ConfigStore backed by store.
func NewConfigStore(hub *Hub, store *settings.Store) *ConfigStore {
	return &ConfigStore{hub: hub, store: store}
}

// Get returns the current settings.
func (cs *ConfigStore) Get() settings.Settings {
	return cs.store.Snapshot()
}

// Set replaces the settings and broadcasts the normalized result. A failure
// to persist is logged; the new settings still take effect.
func (cs *ConfigStore) Set(ctx context.Context, next settings.Settings) settings.Settings {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	applied, err := cs.store.Replace(ctx, next)
	if err != nil {
		slog.Warn("config_store: persist settings failed", "error", err)
	}
	slog.Info("config_store: settings updated",
		"symbols", len(applied.Symbols), "profile", applied.Profile,
		"interval", applied.BaseInterval, "paper", applied.Paper.Enabled)

	data, err := json.Marshal(applied)
	if err != nil {
		slog.Error("config_store: encode settings", "error", err)
		return applied
	}
	cs.hub.Broadcaster.Broadcast(TypeSettings, "", data)
	return applied
}
