// Package node implements the raw and processed node models: identity,
// absorption, and the group-collapse resolution building block.
package node

import (
	"github.com/netdox/netdox/neterr"
	"github.com/netdox/netdox/qname"
)

// Raw is a producer-asserted description of a host/service, keyed by a set
// of DNS names.
type Raw struct {
	Name string
	DNSNames qname.Set
	LinkID string // empty means "no link id"
	Exclusive bool
	Plugin string
}

// ID is the raw-node identity string: the sorted, ';'-joined dns_names.
func (r *Raw) ID() string {
	return r.DNSNames.Join(";")
}

// HasLink reports whether r carries a link id.
func (r *Raw) HasLink() bool { return r.LinkID != "" }

// Equal compares two raw nodes for full equality: same id plus matching
// name, link id, exclusive flag, and plugin.
func (r *Raw) Equal(other *Raw) bool {
	return r.ID() == other.ID() &&
		r.Name == other.Name &&
		r.LinkID == other.LinkID &&
		r.Exclusive == other.Exclusive &&
		r.Plugin == other.Plugin
}

// Processed is the canonical, linkable consolidation of one or more raw
// nodes sharing a DNS superset.
type Processed struct {
	Name string
	LinkID string
	AltNames map[string]struct{}
	DNSNames qname.Set
	Plugins map[string]struct{}
	RawIDs map[string]struct{}
}

func newProcessed() *Processed {
	return &Processed{
		AltNames: make(map[string]struct{}),
		DNSNames: qname.NewSet(),
		Plugins: make(map[string]struct{}),
		RawIDs: make(map[string]struct{}),
	}
}

// Absorb moves other.Name into alt_names and unions the remaining sets,
// used when two resolution attempts yield distinct ProcessedNodes sharing a
// link id.
func (p *Processed) Absorb(other *Processed) {
	p.AltNames[other.Name] = struct{}{}
	for n := range other.AltNames {
		p.AltNames[n] = struct{}{}
	}
	p.DNSNames = p.DNSNames.Union(other.DNSNames)
	for pl := range other.Plugins {
		p.Plugins[pl] = struct{}{}
	}
	for id := range other.RawIDs {
		p.RawIDs[id] = struct{}{}
	}
}

// Validate enforces the write invariant: dns_names, plugins, and raw_ids
// non-empty, link_id non-empty.
func (p *Processed) Validate() error {
	if p.LinkID == "" {
		return neterr.Processf(nil, "processed node %q has empty link id", p.Name)
	}
	if p.DNSNames.Len() == 0 {
		return neterr.Processf(nil, "processed node %q has empty dns_names", p.Name)
	}
	if len(p.Plugins) == 0 {
		return neterr.Processf(nil, "processed node %q has empty plugins", p.Name)
	}
	if len(p.RawIDs) == 0 {
		return neterr.Processf(nil, "processed node %q has empty raw_ids", p.Name)
	}
	return nil
}

// Collapse implements the group-collapse rule: the first raw
// node carrying a link id is linkable; a second is a fatal ambiguity; every
// other member contributes its name to alt_names. Returns (nil, nil) for
// the "single soft node, no link" case (emit nothing).
func Collapse(group []*Raw) (*Processed, error) {
	if len(group) == 0 {
		return nil, neterr.Processf(nil, "group-collapse called with an empty group")
	}

	pn := newProcessed()
	var linkable *Raw

	for _, g := range group {
		pn.Plugins[g.Plugin] = struct{}{}
		pn.DNSNames = pn.DNSNames.Union(g.DNSNames)
		pn.RawIDs[g.ID()] = struct{}{}

		if g.HasLink() {
			if linkable != nil {
				return nil, neterr.Processf(nil,
					"multiple link ids in resolution group: %q and %q", linkable.LinkID, g.LinkID)
			}
			linkable = g
		}
	}

	for _, g := range group {
		if g != linkable {
			pn.AltNames[g.Name] = struct{}{}
		}
	}

	if linkable == nil {
		if len(group) == 1 {
			return nil, nil
		}
		return nil, neterr.Processf(nil, "matching soft nodes with no link id")
	}

	pn.Name = linkable.Name
	pn.LinkID = linkable.LinkID
	delete(pn.AltNames, linkable.Name)

	return pn, nil
}
