package service

import (
	"testing"
)

func TestProfileServiceUpdateDisplayName(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	auth := NewAuthService(gdb)
	profiles := NewProfileService(gdb)

	identity, err := auth.SignUp("demo@example.com", "habit123")
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	updated, err := profiles.UpdateDisplayName(identity.ID, "  打卡达人  ")
	if err != nil {
		t.Fatalf("UpdateDisplayName returned error: %v", err)
	}
	if updated.DisplayName != "打卡达人" {
		t.Fatalf("display name must be trimmed, got %q", updated.DisplayName)
	}

	got, err := profiles.Get(identity.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.DisplayName != "打卡达人" {
		t.Fatalf("display name not persisted, got %q", got.DisplayName)
	}

	// 空字符串表示清除
	cleared, err := profiles.UpdateDisplayName(identity.ID, "")
	if err != nil {
		t.Fatalf("UpdateDisplayName returned error: %v", err)
	}
	if cleared.DisplayName != "" {
		t.Fatalf("expected cleared display name, got %q", cleared.DisplayName)
	}
}

func TestProfileServiceUpdateAvatarURL(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	auth := NewAuthService(gdb)
	profiles := NewProfileService(gdb)

	identity, err := auth.SignUp("demo@example.com", "habit123")
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	updated, err := profiles.UpdateAvatarURL(identity.ID, "/static/avatars/demo.png")
	if err != nil {
		t.Fatalf("UpdateAvatarURL returned error: %v", err)
	}
	if updated.AvatarURL != "/static/avatars/demo.png" {
		t.Fatalf("unexpected avatar url: %q", updated.AvatarURL)
	}
}

func TestProfileServiceRejectsUnknownOwner(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	profiles := NewProfileService(gdb)

	if _, err := profiles.Get("9999"); err == nil {
		t.Fatal("expected error for unknown owner")
	}
	if _, err := profiles.Get("abc"); err == nil {
		t.Fatal("expected error for malformed owner id")
	}
}

func TestTelemetryServiceRecordAndRecent(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	telemetry := NewTelemetryService(gdb)

	telemetry.Record("1", "h1", "habit_created", "晨跑")
	telemetry.Record("1", "h1", "habit_toggled", "2024-01-01")
	telemetry.Record("2", "h2", "habit_created", "阅读")

	events, err := telemetry.Recent("1", 10)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events for owner 1, got %d", len(events))
	}
	for _, event := range events {
		if event.OwnerID != "1" {
			t.Fatalf("event leaked across owners: %+v", event)
		}
	}

	// limit 越界时回退到默认值
	if _, err := telemetry.Recent("1", -5); err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if _, err := telemetry.Recent("1", 1000); err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
}
