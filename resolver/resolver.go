// Package resolver implements the two-phase (four-pass) grouping of raw
// nodes into processed nodes, grounded line-for-line on
// original_source/src/process/mod.rs.
package resolver

import (
	"sort"

	"github.com/hashicorp/go-multierror"

	netdoxdns "github.com/netdox/netdox/dns"
	"github.com/netdox/netdox/node"
	"github.com/netdox/netdox/qname"
)

// Resolve runs the full four-phase algorithm over rawNodes against graph,
// returning every ProcessedNode produced. Per-group failures are
// aggregated via multierror rather than aborting the whole pass, but a
// single invalid exclusion match never silently drops data: every error is
// present in the returned aggregate.
func Resolve(graph *netdoxdns.Graph, rawNodes []*node.Raw) ([]*node.Processed, error) {
	exclusive, permissive := partition(rawNodes)

	// Phase 1: sort exclusive ascending by |dns_names|.
	sort.SliceStable(exclusive, func(i, j int) bool {
		return exclusive[i].DNSNames.Len() < exclusive[j].DNSNames.Len()
	})

	// Phase 2: match each permissive node against the first exclusive node
	// whose dns_names is a superset of the permissive node's. excOrder
	// preserves first-seen order of exclusive group keys for deterministic
	// Phase 3 iteration.
	excMatches := make(map[*node.Raw][]*node.Raw)
	var excOrder []*node.Raw
	matchedExclusive := make(map[*node.Raw]bool)
	var unmatched []*node.Raw

	for _, p := range permissive {
		matched := false
		for _, e := range exclusive {
			if p.DNSNames.Subset(e.DNSNames) {
				if _, seen := excMatches[e]; !seen {
					excOrder = append(excOrder, e)
				}
				excMatches[e] = append(excMatches[e], p)
				matchedExclusive[e] = true
				matched = true
				break
			}
		}
		if !matched {
			unmatched = append(unmatched, p)
		}
	}
	for _, e := range exclusive {
		if !matchedExclusive[e] {
			unmatched = append(unmatched, e)
		}
	}

	var result []*node.Processed
	var errs *multierror.Error

	// Phase 3: resolve each exclusive group, in first-seen order.
	for _, e := range excOrder {
		group := append([]*node.Raw{e}, excMatches[e]...)
		pn, err := node.Collapse(group)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if pn != nil {
			result = append(result, pn)
		}
	}

	// Phase 4: group the unmatched pool by computed network superset and
	// resolve each group via the same collapse rule, in first-seen order.
	groupOrder, groups, err := buildNodeMap(graph, unmatched)
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	for _, key := range groupOrder {
		pn, err := node.Collapse(groups[key])
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if pn != nil {
			result = append(result, pn)
		}
	}

	if errs != nil {
		return result, errs.ErrorOrNil()
	}
	return result, nil
}

func partition(raws []*node.Raw) (exclusive, permissive []*node.Raw) {
	for _, r := range raws {
		if r.Exclusive {
			exclusive = append(exclusive, r)
		} else {
			permissive = append(permissive, r)
		}
	}
	return
}

// supersetKey canonicalises a NetworkSuperSet for use as a map key, since
// the superset value itself is not comparable (contains a set).
type supersetKey struct {
	network string
	names string
}

// buildNodeMap computes, for each unmatched raw node, its network superset
// (direct dns_names per network for exclusive nodes, full graph closure for
// permissive nodes — "Node closure"), then groups nodes that
// share an identical (network, names) bucket. The returned order slice
// preserves first-seen bucket order for deterministic resolution.
func buildNodeMap(graph *netdoxdns.Graph, unmatched []*node.Raw) ([]supersetKey, map[supersetKey][]*node.Raw, error) {
	groups := make(map[supersetKey][]*node.Raw)
	var order []supersetKey
	var errs *multierror.Error

	for _, u := range unmatched {
		superset, err := nodeSuperset(graph, u)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		for _, network := range sortedNetworks(superset) {
			nss := superset[network]
			key := supersetKey{network: nss.Network, names: nss.Names.Join(";")}
			if _, seen := groups[key]; !seen {
				order = append(order, key)
			}
			groups[key] = append(groups[key], u)
		}
	}

	return order, groups, errs.ErrorOrNil()
}

func sortedNetworks(gs netdoxdns.GlobalSuperSet) []string {
	out := make([]string, 0, len(gs))
	for network := range gs {
		out = append(out, network)
	}
	sort.Strings(out)
	return out
}

// nodeSuperset implements "Node closure": exclusive nodes
// insert their own dns_names per-network with no graph walk; permissive
// nodes union dns_superset(n) for every n in dns_names.
func nodeSuperset(graph *netdoxdns.Graph, n *node.Raw) (netdoxdns.GlobalSuperSet, error) {
	if n.Exclusive {
		out := netdoxdns.NewGlobalSuperSet()
		for name := range n.DNSNames {
			network, err := name.Network()
			if err != nil {
				return nil, err
			}
			if out[network] == nil {
				out[network] = &netdoxdns.NetworkSuperSet{Network: network, Names: qname.NewSet()}
			}
			out[network].Names.Add(name)
		}
		return out, nil
	}

	out := netdoxdns.NewGlobalSuperSet()
	for name := range n.DNSNames {
		sup, err := graph.DNSSuperSet(name)
		if err != nil {
			return nil, err
		}
		out.Absorb(sup)
	}
	return out, nil
}
