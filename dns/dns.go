// Package dns is the in-memory DNS relation graph: records, reverse address
// pointers, and cross-network translations, with closure traversal over the
// three edge kinds.
package dns

import (
	"strings"

	"github.com/miekg/dns"

	"github.com/netdox/netdox/neterr"
	"github.com/netdox/netdox/qname"
)

// AddressTypes is the set of record types that imply a reverse pointer
// edge: CNAME, A, PTR.
var AddressTypes = map[string]struct{}{
	"CNAME": {},
	"A": {},
	"PTR": {},
}

// IsAddressType reports whether rtype (case-insensitive) is an address
// record class. miekg/dns's constants (dns.TypeA etc.) give the
// canonical string spellings we normalise against.
func IsAddressType(rtype string) bool {
	switch strings.ToUpper(rtype) {
	case dns.TypeToString[dns.TypeA], dns.TypeToString[dns.TypeCNAME], dns.TypeToString[dns.TypePTR]:
		return true
	default:
		_, ok := AddressTypes[strings.ToUpper(rtype)]
		return ok
	}
}

// Record is a single DNS record tuple. Equality and hashing use all four
// fields.
type Record struct {
	Name qname.Name
	Value string
	RType string
	Plugin string
}

// Graph is the three-mapping DNS index: records, net translations, and
// reverse pointers.
type Graph struct {
	records map[qname.Name][]Record
	netTranslations map[qname.Name]qname.Set
	revPtrs map[qname.Name]qname.Set
}

func NewGraph() *Graph {
	return &Graph{
		records: make(map[qname.Name][]Record),
		netTranslations: make(map[qname.Name]qname.Set),
		revPtrs: make(map[qname.Name]qname.Set),
	}
}

// AddRecord inserts rec into records, and if rec is an address-class record,
// adds a reverse-pointer edge from rec.Value to rec.Name.
func (g *Graph) AddRecord(rec Record) {
	g.records[rec.Name] = append(g.records[rec.Name], rec)

	if IsAddressType(rec.RType) {
		origin := qname.Name(rec.Value)
		if g.revPtrs[origin] == nil {
			g.revPtrs[origin] = qname.NewSet()
		}
		g.revPtrs[origin].Add(rec.Name)
	}
}

// AddNetTranslation records that `from` also exists as `to` in another
// network.
func (g *Graph) AddNetTranslation(from, to qname.Name) {
	if g.netTranslations[from] == nil {
		g.netTranslations[from] = qname.NewSet()
	}
	g.netTranslations[from].Add(to)
}

// Absorb merges another graph's records, translations, and reverse pointers
// into g by union. Associative and commutative over disjoint inputs.
func (g *Graph) Absorb(other *Graph) {
	for name, recs := range other.records {
		g.records[name] = append(g.records[name], recs...)
	}
	for name, set := range other.netTranslations {
		if g.netTranslations[name] == nil {
			g.netTranslations[name] = qname.NewSet()
		}
		g.netTranslations[name] = g.netTranslations[name].Union(set)
	}
	for name, set := range other.revPtrs {
		if g.revPtrs[name] == nil {
			g.revPtrs[name] = qname.NewSet()
		}
		g.revPtrs[name] = g.revPtrs[name].Union(set)
	}
}

// Records returns the records recorded against name, for callers building
// fragment content (publisher C6).
func (g *Graph) Records(name qname.Name) []Record {
	return g.records[name]
}

// NetworkSuperSet is a (network, names) pair: the DNS names a raw node's
// closure reaches within one network.
type NetworkSuperSet struct {
	Network string
	Names qname.Set
}

func newNetworkSuperSet(network string) *NetworkSuperSet {
	return &NetworkSuperSet{Network: network, Names: qname.NewSet()}
}

// GlobalSuperSet maps network -> NetworkSuperSet. Absorption merges by
// network name.
type GlobalSuperSet map[string]*NetworkSuperSet

func NewGlobalSuperSet() GlobalSuperSet {
	return make(GlobalSuperSet)
}

func (gs GlobalSuperSet) insert(name qname.Name) error {
	network, err := name.Network()
	if err != nil {
		return neterr.Processf(err, "closure visited malformed qualified name %q", string(name))
	}
	if gs[network] == nil {
		gs[network] = newNetworkSuperSet(network)
	}
	gs[network].Names.Add(name)
	return nil
}

// Absorb unions other into gs by network.
func (gs GlobalSuperSet) Absorb(other GlobalSuperSet) {
	for network, nss := range other {
		if gs[network] == nil {
			gs[network] = newNetworkSuperSet(network)
		}
		gs[network].Names = gs[network].Names.Union(nss.Names)
	}
}

// DNSSuperSet returns the full closure over the relation graph starting
// from name: a depth-first traversal over forward records, reverse
// pointers, and net translations, with a seen-set for cycle tolerance.
func (g *Graph) DNSSuperSet(name qname.Name) (GlobalSuperSet, error) {
	out := NewGlobalSuperSet()
	seen := qname.NewSet()
	if err := g.walk(name, seen, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Graph) walk(name qname.Name, seen qname.Set, out GlobalSuperSet) error {
	if seen.Has(name) {
		return nil
	}
	seen.Add(name)

	if err := out.insert(name); err != nil {
		return err
	}

	for _, rec := range g.records[name] {
		if err := g.walk(qname.Name(rec.Value), seen, out); err != nil {
			return err
		}
	}
	for origin := range g.revPtrs[name] {
		if err := g.walk(origin, seen, out); err != nil {
			return err
		}
	}
	for translated := range g.netTranslations[name] {
		if err := g.walk(translated, seen, out); err != nil {
			return err
		}
	}

	return nil
}
