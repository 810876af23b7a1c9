package publisher

import (
	"context"

	"github.com/netdox/netdox/datastore"
	"github.com/netdox/netdox/neterr"
	"github.com/netdox/netdox/psml"
	"github.com/netdox/netdox/qname"
)

// linkResolver implements psml.Resolver against a Datastore, used to turn
// link tokens embedded in plugin data into docids while building documents
// and translating mutations.
type linkResolver struct {
	store datastore.Datastore
}

func newLinkResolver(store datastore.Datastore) *linkResolver {
	return &linkResolver{store: store}
}

func (r *linkResolver) DNSDocID(ctx context.Context, name qname.Name) (string, error) {
	qualified, err := r.store.QualifyDNSNames(ctx, []string{string(name)})
	if err != nil {
		return "", err
	}
	if len(qualified) == 0 {
		return "", neterr.Processf(nil, "dns link token %q does not qualify to any known name", name)
	}
	return dnsDocID(qualified[0]), nil
}

func (r *linkResolver) ProcNodeDocID(linkID string) string {
	return nodeDocID(linkID)
}

func (r *linkResolver) RawNodeDocID(ctx context.Context, rawID string) (string, error) {
	pn, ok, err := r.store.ProcessedNodeByRawID(ctx, rawID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", neterr.Processf(nil, "rawnode link token %q has no processed node", rawID)
	}
	return nodeDocID(pn.LinkID), nil
}

func (r *linkResolver) ReportDocID(reportID string) string {
	return reportDocID(reportID)
}

var _ psml.Resolver = (*linkResolver)(nil)
