// Package publisher translates a batch of decoded changelog entries into
// document mutations against a remote publishing backend, and drives their
// execution.
package publisher

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/netdox/netdox/changelog"
	"github.com/netdox/netdox/datastore"
	"github.com/netdox/netdox/dns"
	"github.com/netdox/netdox/neterr"
	"github.com/netdox/netdox/node"
	"github.com/netdox/netdox/psml"
	"github.com/netdox/netdox/qname"
	"github.com/netdox/netdox/remote"
)

// maxDocIDLen bounds the length of a docid accepted into a bulk upload
// archive; longer ids are dropped with a warning rather than failing the
// whole batch.
const maxDocIDLen = 100

// Publish translates changes into mutations, executes them against rem, and
// advances store's checkpoint if and only if every mutation in the batch
// succeeds and changes is non-empty.
func Publish(ctx context.Context, log *slog.Logger, store datastore.Datastore, rem remote.Remote, changes []*changelog.Change) error {
	if len(changes) == 0 {
		return nil
	}

	resolver := newLinkResolver(store)

	uploadIDs := make(map[string]struct{})
	var uploads []*Upload
	var rest []Mutation

	for _, c := range changes {
		muts, err := translate(ctx, log, store, resolver, c)
		if err != nil {
			return err
		}
		for _, m := range muts {
			if u, ok := m.(*Upload); ok {
				uploadIDs[u.TargetDocID()] = struct{}{}
				uploads = append(uploads, u)
				continue
			}
			rest = append(rest, m)
		}
	}

	// Dedup: any fragment mutation whose target is being freshly uploaded
	// this batch is already reflected in that upload's document.
	deduped := rest[:0]
	for _, m := range rest {
		if _, fresh := uploadIDs[m.TargetDocID()]; fresh {
			continue
		}
		deduped = append(deduped, m)
	}
	rest = deduped

	if len(uploads) > 0 {
		if err := bulkUpload(ctx, log, rem, uploads); err != nil {
			return err
		}
	}

	if err := executeConcurrently(ctx, rem, rest); err != nil {
		return err
	}

	return store.SetCheckpoint(ctx, changes[len(changes)-1].ID)
}

// translate converts a single decoded change into zero or more document
// mutations.
func translate(ctx context.Context, log *slog.Logger, store datastore.Datastore, resolver *linkResolver, c *changelog.Change) ([]Mutation, error) {
	switch c.Kind {
	case changelog.Init:
		return []Mutation{&Upload{Doc: changelogDocument()}}, nil

	case changelog.CreateDNSName:
		doc, err := dnsDocument(ctx, store, qnameOf(c.QName))
		if err != nil {
			return nil, err
		}
		return []Mutation{&Upload{Doc: doc}}, nil

	case changelog.AddPluginToDNSName, changelog.AddRecordTypeToDNSName:
		// Bookkeeping only; the fact is already visible the next time the
		// owning dns document is rebuilt. No mutation of its own.
		return nil, nil

	case changelog.CreateDNSRecord:
		docid := dnsDocID(qnameOf(c.QName))
		frag := &psml.PropertiesFragment{
			ID: fragmentIDForRecord(c.RecordType, c.RecordValue),
			Properties: []psml.Property{
				{Name: "type", Kind: psml.PropertyString, Value: c.RecordType},
				{Name: "value", Kind: psml.PropertyString, Value: c.RecordValue},
				{Name: "plugin", Kind: psml.PropertyString, Value: c.RecordPlugin},
			},
		}
		muts := []Mutation{&AddFragment{DocID: docid, Section: "records", FragmentID: frag.ID, Content: frag}}
		if dns.IsAddressType(c.RecordType) {
			// The value names the record's owner in reverse; that document
			// gets an implied-record fragment pointing back here.
			impliedDocID := dnsDocID(qnameOf(c.RecordValue))
			impliedFrag := &psml.PropertiesFragment{
				ID: "implied_" + frag.ID,
				Properties: []psml.Property{
					{Name: "implied-record", Kind: psml.PropertyXRef, Value: docid},
				},
			}
			muts = append(muts, &AddFragment{DocID: impliedDocID, Section: "implied-records", FragmentID: impliedFrag.ID, Content: impliedFrag})
		}
		return muts, nil

	case changelog.CreatePluginNode:
		pn, ok, err := store.ProcessedNodeByRawID(ctx, c.NodeID)
		if err != nil {
			return nil, err
		}
		if !ok {
			log.Warn("dropping create-plugin-node change: raw node did not resolve to a processed node",
				"raw_id", c.NodeID)
			return nil, nil
		}
		return []Mutation{&Upload{Doc: nodeDocument(pn)}}, nil

	case changelog.CreateReport:
		return []Mutation{&Upload{Doc: reportDocument(c.ReportID)}}, nil

	case changelog.UpdatedMetadata:
		docid, err := docidForObjID(ctx, resolver, c.ObjID)
		if err != nil {
			return nil, err
		}
		meta, err := store.Metadata(ctx, c.ObjID)
		if err != nil {
			return nil, err
		}
		frag := metaFragment(meta)
		return []Mutation{&ReplaceFragment{DocID: docid, FragmentID: frag.ID, Content: frag}}, nil

	case changelog.CreatedData, changelog.UpdatedData:
		docid, err := docidForObjID(ctx, resolver, c.ObjID)
		if err != nil {
			return nil, err
		}
		data, err := store.Data(ctx, c.ObjID, c.DataID)
		if err != nil {
			return nil, err
		}
		frags, err := dataFragment(ctx, resolver, data)
		if err != nil {
			return nil, err
		}
		section := sectionFor(c.DataKind)
		muts := make([]Mutation, len(frags))
		for i, frag := range frags {
			if c.Kind == changelog.CreatedData {
				muts[i] = &AddFragment{DocID: docid, Section: section, FragmentID: frag.FragmentID(), Content: frag}
			} else {
				muts[i] = &ReplaceFragment{DocID: docid, FragmentID: frag.FragmentID(), Content: frag}
			}
		}
		return muts, nil

	case changelog.UpdatedNetworkMapping:
		// TODO(netdox): network remapping has no publisher-visible effect
		// until the remote side gains a rename/merge primitive; tracked as
		// an open decision.
		log.Warn("updated network mapping has no publisher translation yet", "qname", c.QName)
		return nil, nil

	default:
		return nil, neterr.Processf(nil, "unhandled changelog kind %q", c.Kind)
	}
}

func docidForObjID(ctx context.Context, resolver *linkResolver, objID string) (string, error) {
	switch {
	case strings.HasPrefix(objID, "dns;"):
		return dnsDocID(qnameOf(strings.TrimPrefix(objID, "dns;"))), nil
	case strings.HasPrefix(objID, "nodes;"):
		return resolver.RawNodeDocID(ctx, strings.TrimPrefix(objID, "nodes;"))
	default:
		return "", neterr.Processf(nil, "object id %q has no recognised namespace", objID)
	}
}

func metaFragment(meta map[string]string) *psml.PropertiesFragment {
	var keys []string
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	props := make([]psml.Property, 0, len(keys))
	for _, k := range keys {
		props = append(props, psml.Property{Name: k, Kind: psml.PropertyString, Value: meta[k]})
	}
	return &psml.PropertiesFragment{ID: "meta", Properties: props}
}

// sectionFor picks the section a data fragment lands in, per kind: plugin
// data and report data never share a section.
func sectionFor(kind changelog.DataKind) string {
	if kind == changelog.DataKindReport {
		return "report-data"
	}
	return "plugin-data"
}

// dataFragment converts a plugin/report data blob into one or more
// fragments, resolving any link tokens its content carries. Free-text
// content with embedded link tokens expands into a fragment per resolved
// xref plus its surrounding text, rather than collapsing to plain text.
func dataFragment(ctx context.Context, resolver *linkResolver, d node.Data) ([]psml.Fragment, error) {
	switch v := d.(type) {
	case *node.StringData:
		segments, xrefDocids, err := psml.ResolveText(ctx, resolver, v.Content)
		if err != nil {
			return nil, err
		}
		if len(xrefDocids) == 0 {
			return []psml.Fragment{&psml.TextFragment{ID: v.DataID, Text: segments[0]}}, nil
		}
		frags := make([]psml.Fragment, len(xrefDocids))
		for i, docid := range xrefDocids {
			var suffix string
			if i == len(xrefDocids)-1 {
				suffix = segments[len(segments)-1]
			}
			frags[i] = &psml.XrefFragment{
				ID:     fmt.Sprintf("%s_%d", v.DataID, i),
				Docid:  docid,
				Prefix: segments[i],
				Suffix: suffix,
			}
		}
		return frags, nil

	case *node.ListData:
		props := make([]psml.Property, 0, len(v.Items))
		for i, item := range v.Items {
			p, err := psml.ResolveProperty(ctx, resolver, psml.Property{Name: item.Name, Kind: psml.PropertyString, Value: item.Value})
			if err != nil {
				return nil, err
			}
			p.Name = fmt.Sprintf("%s_%d", item.Name, i)
			props = append(props, p)
		}
		return []psml.Fragment{&psml.PropertiesFragment{ID: v.DataID, Properties: props}}, nil

	case *node.HashData:
		props := make([]psml.Property, 0, len(v.Content))
		for _, e := range v.Content {
			p, err := psml.ResolveProperty(ctx, resolver, psml.Property{Name: e.Key, Kind: psml.PropertyString, Value: e.Value})
			if err != nil {
				return nil, err
			}
			props = append(props, p)
		}
		return []psml.Fragment{&psml.PropertiesFragment{ID: v.DataID, Properties: props}}, nil

	case *node.TableData:
		b, err := json.Marshal(v.Cells)
		if err != nil {
			return nil, neterr.Processf(err, "failed to serialise table data %q", v.DataID)
		}
		return []psml.Fragment{&psml.TextFragment{ID: v.DataID, Text: string(b)}}, nil

	default:
		return nil, neterr.Processf(nil, "unrecognised plugin data type %T", d)
	}
}

func fragmentIDForRecord(rtype, value string) string {
	return strings.ToLower(rtype) + "_" + strings.NewReplacer("/", "_", ":", "_").Replace(value)
}

func qnameOf(s string) qname.Name {
	return qname.Name(s)
}

// bulkUpload zips uploads into a single archive (one entry per docid,
// skipping over-length docids with a warning) and drives the remote's
// unzip/load job to completion.
func bulkUpload(ctx context.Context, log *slog.Logger, rem remote.Remote, uploads []*Upload) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, u := range uploads {
		docid := u.TargetDocID()
		if len(docid) > maxDocIDLen {
			log.Warn("dropping upload with over-length docid", "docid", docid, "len", len(docid))
			continue
		}
		w, err := zw.Create(docid + ".psml")
		if err != nil {
			return neterr.Remotef(err, "failed to add %q to bulk upload archive", docid)
		}
		enc := json.NewEncoder(w)
		if err := enc.Encode(u.Doc); err != nil {
			return neterr.Remotef(err, "failed to encode document %q", docid)
		}
	}
	if err := zw.Close(); err != nil {
		return neterr.Remotef(err, "failed to finalise bulk upload archive")
	}

	handle, err := rem.BulkUpload(ctx, buf.Bytes(), "website")
	if err != nil {
		return err
	}
	state, detail, err := rem.AwaitJob(ctx, handle)
	if err != nil {
		return err
	}
	if !state.Succeeded() {
		return neterr.Remotef(nil, "bulk upload job ended in state %q: %s", state, detail)
	}
	return nil
}

// executeConcurrently fans out every non-upload mutation to its own
// goroutine and joins on completion, collecting per-mutation failures
// without aborting siblings.
func executeConcurrently(ctx context.Context, rem remote.Remote, muts []Mutation) error {
	if len(muts) == 0 {
		return nil
	}

	var g errgroup.Group
	var mu sync.Mutex
	var errs error

	for _, m := range muts {
		m := m
		g.Go(func() error {
			// Always return nil: errgroup's Wait would otherwise cancel
			// sibling goroutines' shared context on the first failure, and
			// the batch must run every mutation regardless.
			if err := executeOne(ctx, rem, m); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errs
}

func executeOne(ctx context.Context, rem remote.Remote, m Mutation) error {
	switch v := m.(type) {
	case *AddFragment:
		content, err := encodeFragment(v.Content)
		if err != nil {
			return err
		}
		return rem.AddFragment(ctx, v.DocID, v.Section, v.FragmentID, content)
	case *ReplaceFragment:
		content, err := encodeFragment(v.Content)
		if err != nil {
			return err
		}
		return rem.ReplaceFragment(ctx, v.DocID, v.FragmentID, content)
	default:
		return neterr.Processf(nil, "unexpected mutation type %T outside upload phase", m)
	}
}

func encodeFragment(f psml.Fragment) ([]byte, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, neterr.Processf(err, "failed to encode fragment %q", f.FragmentID())
	}
	return b, nil
}
