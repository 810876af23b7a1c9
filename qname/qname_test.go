package qname_test

import (
	"testing"

	"github.com/netdox/netdox/qname"
)

func TestValid(t *testing.T) {
	cases := map[qname.Name]bool{
		"[dmz]host.example.com": true,
		"[]host.example.com":    false,
		"host.example.com":      false,
		"[dmz]":                 false,
	}
	for n, want := range cases {
		if got := n.Valid(); got != want {
			t.Errorf("Valid(%q) = %v, want %v", n, got, want)
		}
	}
}

func TestNetwork(t *testing.T) {
	n := qname.Name("[dmz]host.example.com")
	net, err := n.Network()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if net != "dmz" {
		t.Errorf("got %q, want %q", net, "dmz")
	}
}

func TestNetworkMalformed(t *testing.T) {
	cases := []qname.Name{"host.example.com", "[]host.example.com"}
	for _, n := range cases {
		if _, err := n.Network(); err == nil {
			t.Errorf("expected error for malformed name %q", n)
		}
	}
}

func TestMustNetworkPanicsOnMalformed(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected MustNetwork to panic on a malformed name")
		}
	}()
	qname.Name("not-qualified").MustNetwork()
}

func TestSetUnionAndSubset(t *testing.T) {
	a := qname.NewSet("[dmz]a", "[dmz]b")
	b := qname.NewSet("[dmz]b", "[dmz]c")

	union := a.Union(b)
	if union.Len() != 3 {
		t.Errorf("expected union of 3, got %d", union.Len())
	}
	if !a.Subset(union) {
		t.Errorf("expected a to be a subset of its own union with b")
	}
	if b.Subset(a) {
		t.Errorf("expected b not to be a subset of a")
	}
}

func TestSetSortedIsStable(t *testing.T) {
	s := qname.NewSet("[dmz]c", "[dmz]a", "[dmz]b")
	sorted := s.Sorted()
	want := []qname.Name{"[dmz]a", "[dmz]b", "[dmz]c"}
	for i, n := range want {
		if sorted[i] != n {
			t.Errorf("sorted[%d] = %q, want %q", i, sorted[i], n)
		}
	}
}

func TestSetJoin(t *testing.T) {
	s := qname.NewSet("[dmz]b", "[dmz]a")
	if got := s.Join(";"); got != "[dmz]a;[dmz]b" {
		t.Errorf("got %q, want %q", got, "[dmz]a;[dmz]b")
	}
}

func TestSetHasAndAdd(t *testing.T) {
	s := qname.NewSet()
	if s.Has("[dmz]a") {
		t.Errorf("expected empty set to not have element")
	}
	s.Add("[dmz]a")
	if !s.Has("[dmz]a") {
		t.Errorf("expected set to have added element")
	}
}
