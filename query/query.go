// Package query exposes read-only counts over the datastore, both as a CLI
// value and as Prometheus gauges, grounded on nodedns's promauto
// gauge-vec usage.
package query

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/netdox/netdox/datastore"
)

var (
	dnsNameCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netdox_dns_name_count",
		Help: "Number of distinct DNS names known to the datastore.",
	})
	rawNodeCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netdox_raw_node_count",
		Help: "Number of raw nodes asserted by producers.",
	})
	pendingChangeCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netdox_pending_change_count",
		Help: "Number of changelog entries not yet reflected by the last checkpoint.",
	})
)

// Counts is the point-in-time snapshot returned by Collect.
type Counts struct {
	DNSNames       int
	RawNodes       int
	PendingChanges int
}

// Collect reads current counts from store and updates the package's
// Prometheus gauges to match.
func Collect(ctx context.Context, store datastore.Datastore) (Counts, error) {
	names, err := store.AllDNSNames(ctx)
	if err != nil {
		return Counts{}, err
	}
	raw, err := store.AllRawNodes(ctx)
	if err != nil {
		return Counts{}, err
	}
	checkpoint, err := store.Checkpoint(ctx)
	if err != nil {
		return Counts{}, err
	}
	pending, err := store.GetChanges(ctx, checkpoint)
	if err != nil {
		return Counts{}, err
	}

	c := Counts{
		DNSNames:       len(names),
		RawNodes:       len(raw),
		PendingChanges: len(pending),
	}

	dnsNameCount.Set(float64(c.DNSNames))
	rawNodeCount.Set(float64(c.RawNodes))
	pendingChangeCount.Set(float64(c.PendingChanges))

	return c, nil
}
