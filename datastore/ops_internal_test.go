package datastore

import (
	"context"
	"testing"
)

func openInternalTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(ConnConfig{System: SQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("unexpected error opening store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetChangesAfterCheckpoint(t *testing.T) {
	s := openInternalTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		row := changelogRow{Change: "create dns name", Value: "[dmz]host"}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			t.Fatalf("unexpected error seeding changelog: %v", err)
		}
	}

	entries, err := s.GetChanges(ctx, "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries strictly after checkpoint 1, got %d", len(entries))
	}
}

func TestQualifyDNSNamesUsesDefaultNetworkForBareNames(t *testing.T) {
	s := openInternalTestStore(t)
	ctx := context.Background()

	row := settingsRow{Key: settingsKeyDefaultNetwork, Value: "dmz"}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		t.Fatalf("unexpected error seeding default network: %v", err)
	}

	out, err := s.QualifyDNSNames(ctx, []string{"host.example.com", "[internal]other.example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != "[dmz]host.example.com" {
		t.Errorf("got %q, want bare name qualified with default network", out[0])
	}
	if out[1] != "[internal]other.example.com" {
		t.Errorf("got %q, want already-qualified name unchanged", out[1])
	}
}
