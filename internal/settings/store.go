package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultKey is the Redis key settings are mirrored under.
const DefaultKey = "signalbot:settings"

// KV is the persistence the store mirrors into (Redis in production).
type KV interface {
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
}

// Store owns the current settings. All reads return copies so a caller's
// snapshot cannot change underneath it.
type Store struct {
	mu  sync.RWMutex
	cur Settings

	kv   KV
	key  string
	path string // YAML file rewritten on change; empty disables
}

// NewStore creates a store holding initial (normalized).
func NewStore(initial Settings) *Store {
	return &Store{cur: initial.Normalize(), key: DefaultKey}
}

// WithKV mirrors every change into kv under key.
func (s *Store) WithKV(kv KV, key string) *Store {
	s.kv = kv
	if key != "" {
		s.key = key
	}
	return s
}

// WithFile rewrites path on every change.
func (s *Store) WithFile(path string) *Store {
	s.path = path
	return s
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Clone()
}

// Replace swaps in next (normalized) and persists it. Persistence failures
// are returned but the in-memory value is still updated.
func (s *Store) Replace(ctx context.Context, next Settings) (Settings, error) {
	next = next.Normalize()
	s.mu.Lock()
	s.cur = next
	s.mu.Unlock()
	return next.Clone(), s.persist(ctx, next)
}

// Update applies fn to a copy of the current settings and stores the result.
func (s *Store) Update(ctx context.Context, fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	next := s.cur.Clone()
	fn(&next)
	next = next.Normalize()
	s.cur = next
	s.mu.Unlock()
	return next.Clone(), s.persist(ctx, next)
}

// Restore loads settings from the KV mirror if one is stored there.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	if s.kv == nil {
		return false, nil
	}
	var stored Settings
	found, err := s.kv.GetJSON(ctx, s.key, &stored)
	if err != nil || !found {
		return false, err
	}
	s.mu.Lock()
	s.cur = stored.Normalize()
	s.mu.Unlock()
	slog.Info("settings restored from redis", "key", s.key)
	return true, nil
}

func (s *Store) persist(ctx context.Context, st Settings) error {
	var errs []error
	if s.kv != nil {
		if err := s.kv.SetJSON(ctx, s.key, st); err != nil {
			errs = append(errs, fmt.Errorf("mirror settings: %w", err))
		}
	}
	if s.path != "" {
		if err := SaveFile(s.path, st); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadFile reads YAML settings from path. A missing file yields Defaults.
func LoadFile(path string) (Settings, error) {
	st := Defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &st); err != nil {
		return Defaults(), fmt.Errorf("parse settings %s: %w", path, err)
	}
	return st.Normalize(), nil
}

// SaveFile writes st to path as YAML.
func SaveFile(path string, st Settings) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
