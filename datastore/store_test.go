package datastore_test

import (
	"context"
	"testing"

	"github.com/netdox/netdox/datastore"
	"github.com/netdox/netdox/node"
	"github.com/netdox/netdox/qname"
)

func openTestStore(t *testing.T) *datastore.Store {
	t.Helper()
	s, err := datastore.Open(datastore.ConnConfig{System: datastore.SQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("unexpected error opening store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutAndGetProcessedNodeRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	pn := &node.Processed{
		Name:     "host",
		LinkID:   "link-1",
		AltNames: map[string]struct{}{"alias": {}},
		DNSNames: qname.NewSet("[dmz]a", "[dmz]b"),
		Plugins:  map[string]struct{}{"amass": {}},
		RawIDs:   map[string]struct{}{"raw-1": {}},
	}

	if err := s.PutProcessedNode(ctx, pn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok, err := s.ProcessedNodeByLinkID(ctx, "link-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected to find the written processed node")
	}
	if got.Name != "host" || got.DNSNames.Len() != 2 {
		t.Errorf("unexpected round-tripped node: %+v", got)
	}
}

func TestProcessedNodeByRawIDFollowsReverseIndex(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	pn := &node.Processed{
		Name:     "host",
		LinkID:   "link-1",
		DNSNames: qname.NewSet("[dmz]a"),
		Plugins:  map[string]struct{}{"amass": {}},
		RawIDs:   map[string]struct{}{"raw-1": {}},
	}
	if err := s.PutProcessedNode(ctx, pn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok, err := s.ProcessedNodeByRawID(ctx, "raw-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || got.LinkID != "link-1" {
		t.Fatalf("expected the reverse index to resolve to link-1, got %+v, %v", got, ok)
	}
}

func TestProcessedNodeByLinkIDMissingReturnsFalse(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.ProcessedNodeByLinkID(context.Background(), "no-such-link")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for a missing link id")
	}
}

func TestPutProcessedNodeRejectsInvalid(t *testing.T) {
	s := openTestStore(t)
	if err := s.PutProcessedNode(context.Background(), &node.Processed{}); err == nil {
		t.Fatal("expected writing an invalid processed node to fail validation")
	}
}

func TestCheckpointDefaultsToEmpty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cp, err := s.Checkpoint(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cp != "" {
		t.Errorf("expected empty checkpoint before any SetCheckpoint, got %q", cp)
	}

	if err := s.SetCheckpoint(ctx, "5"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cp, err = s.Checkpoint(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cp != "5" {
		t.Errorf("got checkpoint %q, want 5", cp)
	}
}

func TestRawIDFromQNamesSortsAndJoins(t *testing.T) {
	s := openTestStore(t)
	got, err := s.RawIDFromQNames(context.Background(), []string{"[dmz]b", "[dmz]a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "[dmz]a;[dmz]b" {
		t.Errorf("got %q, want %q", got, "[dmz]a;[dmz]b")
	}
}

func TestDefaultNetworkUnsetIsConfigError(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.DefaultNetwork(context.Background()); err == nil {
		t.Fatal("expected an error when default_network has never been set")
	}
}
