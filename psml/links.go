package psml

import (
	"context"
	"regexp"
	"strings"

	"github.com/netdox/netdox/neterr"
	"github.com/netdox/netdox/qname"
)

// LinkKind is one of the recognised link-token kinds.
type LinkKind string

const (
	LinkDNS LinkKind = "dns"
	LinkProcNode LinkKind = "procnode"
	LinkRawNode LinkKind = "rawnode"
	LinkReport LinkKind = "report"
	LinkExternal LinkKind = "external"
)

// linkPattern mirrors original_source's LINK_PATTERN, built there with
// swap_greed(true) so the prefix matches lazily and the leftmost token
// resolves first: capture group 1 is prefix, group 2 is kind, group 3 is
// id, group 4 is suffix.
var linkPattern = regexp.MustCompile(`^(.*?)\(!\((dns|procnode|rawnode|report|external)\|!\|([\w0-9\[\]_.-]+)\)!\)(.*)$`)

// Resolver resolves a link token's id into a document id: dns qualifies
// the name via the datastore; rawnode resolves to its
// processed node's link id; procnode/report map to document ids directly;
// external passes through unchanged.
type Resolver interface {
	DNSDocID(ctx context.Context, name qname.Name) (string, error)
	ProcNodeDocID(linkID string) string
	RawNodeDocID(ctx context.Context, rawID string) (string, error)
	ReportDocID(reportID string) string
}

// link is one parsed occurrence of a link token within a text value.
type link struct {
	prefix, suffix string
	docid string
}

// parseLink finds the first (leftmost, by construction of the lazy prefix
// match mirroring original_source's swap_greed behaviour) link token in
// text, resolving its id into a docid via r.
func parseLink(ctx context.Context, r Resolver, text string) (*link, bool, error) {
	m := linkPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false, nil
	}
	prefix, kind, id, suffix := m[1], m[2], m[3], m[4]

	var docid string
	var err error
	switch LinkKind(kind) {
	case LinkDNS:
		docid, err = r.DNSDocID(ctx, qname.Name(id))
	case LinkProcNode:
		docid = r.ProcNodeDocID(id)
	case LinkRawNode:
		docid, err = r.RawNodeDocID(ctx, id)
	case LinkReport:
		docid = r.ReportDocID(id)
	case LinkExternal:
		docid = id
	default:
		err = neterr.Processf(nil, "unreachable link kind %q", kind)
	}
	if err != nil {
		return nil, false, err
	}

	return &link{prefix: prefix, suffix: suffix, docid: docid}, true, nil
}

// ResolveText walks every link token in text and returns the accumulated
// plain-text segments plus the docids of any xrefs found, in order. Used
// for free-text fragment content, which becomes inline cross-document
// references.
func ResolveText(ctx context.Context, r Resolver, text string) (segments []string, xrefDocids []string, err error) {
	for {
		l, found, perr := parseLink(ctx, r, text)
		if perr != nil {
			return nil, nil, perr
		}
		if !found {
			segments = append(segments, text)
			return segments, xrefDocids, nil
		}
		segments = append(segments, l.prefix)
		xrefDocids = append(xrefDocids, l.docid)
		text = l.suffix
	}
}

// ResolveProperty resolves a single property value: if it contains a link
// token, the property becomes a typed xref; otherwise it is returned
// unchanged.
func ResolveProperty(ctx context.Context, r Resolver, p Property) (Property, error) {
	l, found, err := parseLink(ctx, r, p.Value)
	if err != nil {
		return p, err
	}
	if !found {
		return p, nil
	}
	if strings.TrimSpace(l.prefix) != "" || strings.TrimSpace(l.suffix) != "" {
		// A link embedded alongside other text in a property value has no
		// typed-xref representation; fall back to leaving it as a string.
		return p, nil
	}
	p.Kind = PropertyXRef
	p.Value = l.docid
	return p, nil
}
