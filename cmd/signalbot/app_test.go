package main

import (
	"context"
	"path/filepath"
	"testing"

	"trading-signalbot/internal/settings"
)

func TestOneShotSettings_LeavesFileUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	st := settings.Defaults()
	st.Profile = settings.ProfileSwing
	st.Symbols = []string{"BTC/USDT"}
	if err := settings.SaveFile(path, st); err != nil {
		t.Fatal(err)
	}
	persisted := settings.NewStore(st).WithFile(path)

	got := oneShotSettings(persisted.Snapshot(), "scalp")
	if p := got.Snapshot().Profile; p != settings.ProfileScalp {
		t.Errorf("profile = %q, want %q", p, settings.ProfileScalp)
	}
	if _, err := got.Update(context.Background(), func(s *settings.Settings) { s.Signature = "x" }); err != nil {
		t.Fatalf("update: %v", err)
	}

	onDisk, err := settings.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if onDisk.Profile != settings.ProfileSwing || onDisk.Signature != "" {
		t.Errorf("settings file rewritten: %+v", onDisk)
	}
	if persisted.Snapshot().Profile != settings.ProfileSwing {
		t.Error("override leaked into the persisted store")
	}
}

func TestOneShotSettings_NoOverrideKeepsProfile(t *testing.T) {
	st := settings.Defaults()
	st.Profile = settings.ProfileIntraday
	if p := oneShotSettings(st, "").Snapshot().Profile; p != settings.ProfileIntraday {
		t.Errorf("profile = %q", p)
	}
}
