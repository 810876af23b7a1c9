// Package datastore defines the abstract keyspace contract the core
// depends on, plus a reference SQL-backed implementation whose
// connection/migration mechanics are adapted from owasp-amass-engine's
// sessions/session.go.
package datastore

import (
	"context"

	"github.com/netdox/netdox/changelog"
	"github.com/netdox/netdox/dns"
	"github.com/netdox/netdox/node"
	"github.com/netdox/netdox/qname"
)

// Datastore is the abstract contract C1/C2/C4/C6 depend on. Swapping
// implementations must not require changes to those packages.
type Datastore interface {
	changelog.EntrySource

	// DNS reads, used to rebuild the in-memory graph each resolution pass.
	AllDNSNames(ctx context.Context) ([]qname.Name, error)
	DNSRecords(ctx context.Context, name qname.Name) ([]dns.Record, error)
	DNSTranslations(ctx context.Context, name qname.Name) ([]qname.Name, error)

	// Raw node reads.
	AllRawNodes(ctx context.Context) ([]*node.Raw, error)

	// Processed node read/write.
	PutProcessedNode(ctx context.Context, pn *node.Processed) error
	ProcessedNodeByLinkID(ctx context.Context, linkID string) (*node.Processed, bool, error)
	ProcessedNodeByRawID(ctx context.Context, rawID string) (*node.Processed, bool, error)

	// Metadata and plugin/report data, keyed by "dns;<qname>" or
	// "nodes;<raw_id>" object ids.
	Metadata(ctx context.Context, objID string) (map[string]string, error)
	Data(ctx context.Context, objID, dataID string) (node.Data, error)

	// Stored-procedure-equivalent atomic operations invoked by the core.
	QualifyDNSNames(ctx context.Context, names []string) ([]qname.Name, error)
	RawIDFromQNames(ctx context.Context, names []string) (string, error)

	DefaultNetwork(ctx context.Context) (string, error)

	// Checkpoint read/write of the id of the last published change, kept in
	// the datastore itself. The remote changelog document's last_change
	// fragment is not updated.
	Checkpoint(ctx context.Context) (string, error)
	SetCheckpoint(ctx context.Context, id string) error
}
