package publisher

import (
	"context"
	"log/slog"
	"testing"

	"github.com/netdox/netdox/changelog"
	"github.com/netdox/netdox/dns"
	"github.com/netdox/netdox/node"
	"github.com/netdox/netdox/psml"
	"github.com/netdox/netdox/qname"
	"github.com/netdox/netdox/remote"
)

type fakeStore struct {
	records    map[qname.Name][]dns.Record
	meta       map[string]map[string]string
	procByRaw  map[string]*node.Processed
	checkpoint string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:   make(map[qname.Name][]dns.Record),
		meta:      make(map[string]map[string]string),
		procByRaw: make(map[string]*node.Processed),
	}
}

func (f *fakeStore) GetChanges(ctx context.Context, from string) ([]changelog.Entry, error) {
	return nil, nil
}
func (f *fakeStore) AllDNSNames(ctx context.Context) ([]qname.Name, error) { return nil, nil }
func (f *fakeStore) DNSRecords(ctx context.Context, name qname.Name) ([]dns.Record, error) {
	return f.records[name], nil
}
func (f *fakeStore) DNSTranslations(ctx context.Context, name qname.Name) ([]qname.Name, error) {
	return nil, nil
}
func (f *fakeStore) AllRawNodes(ctx context.Context) ([]*node.Raw, error) { return nil, nil }
func (f *fakeStore) PutProcessedNode(ctx context.Context, pn *node.Processed) error { return nil }
func (f *fakeStore) ProcessedNodeByLinkID(ctx context.Context, linkID string) (*node.Processed, bool, error) {
	return nil, false, nil
}
func (f *fakeStore) ProcessedNodeByRawID(ctx context.Context, rawID string) (*node.Processed, bool, error) {
	pn, ok := f.procByRaw[rawID]
	return pn, ok, nil
}
func (f *fakeStore) Metadata(ctx context.Context, objID string) (map[string]string, error) {
	return f.meta[objID], nil
}
func (f *fakeStore) Data(ctx context.Context, objID, dataID string) (node.Data, error) {
	return nil, nil
}
func (f *fakeStore) QualifyDNSNames(ctx context.Context, names []string) ([]qname.Name, error) {
	return nil, nil
}
func (f *fakeStore) RawIDFromQNames(ctx context.Context, names []string) (string, error) {
	return "", nil
}
func (f *fakeStore) DefaultNetwork(ctx context.Context) (string, error) { return "", nil }
func (f *fakeStore) Checkpoint(ctx context.Context) (string, error)     { return f.checkpoint, nil }
func (f *fakeStore) SetCheckpoint(ctx context.Context, id string) error {
	f.checkpoint = id
	return nil
}

type fakeRemote struct {
	uploadedZips   [][]byte
	addedFragments int
	replacedFrags  int
}

func (r *fakeRemote) BulkUpload(ctx context.Context, zipBytes []byte, folder string) (remote.JobHandle, error) {
	r.uploadedZips = append(r.uploadedZips, zipBytes)
	return "job-1", nil
}
func (r *fakeRemote) AwaitJob(ctx context.Context, handle remote.JobHandle) (remote.JobState, string, error) {
	return remote.JobCompleted, "", nil
}
func (r *fakeRemote) AddFragment(ctx context.Context, docid, sectionID, fragmentID string, content []byte) error {
	r.addedFragments++
	return nil
}
func (r *fakeRemote) ReplaceFragment(ctx context.Context, docid, fragmentID string, content []byte) error {
	r.replacedFrags++
	return nil
}
func (r *fakeRemote) GetFragment(ctx context.Context, docid, fragmentID string) ([]byte, error) {
	return nil, nil
}
func (r *fakeRemote) Labeled(ctx context.Context, label string) ([]remote.ObjectID, error) {
	return nil, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestTranslateCreateDNSRecordAddsImpliedFragmentForAddressType(t *testing.T) {
	store := newFakeStore()
	resolver := newLinkResolver(store)
	c := &changelog.Change{Kind: changelog.CreateDNSRecord, QName: "[dmz]host.example.com", RecordType: "A", RecordValue: "[dmz]1.2.3.4"}

	muts, err := translate(context.Background(), discardLogger(), store, resolver, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(muts) != 2 {
		t.Fatalf("expected 2 mutations (record + implied), got %d", len(muts))
	}

	record, ok := muts[0].(*AddFragment)
	if !ok || record.Section != "records" || record.DocID != dnsDocID(qnameOf(c.QName)) {
		t.Fatalf("expected first mutation to add a records fragment to the name's doc, got %+v", muts[0])
	}

	implied, ok := muts[1].(*AddFragment)
	if !ok || implied.Section != "implied-records" || implied.DocID != dnsDocID(qnameOf(c.RecordValue)) {
		t.Fatalf("expected second mutation to add an implied-records fragment to the value's doc, got %+v", muts[1])
	}
}

func TestTranslateBookkeepingKindsProduceNoMutation(t *testing.T) {
	store := newFakeStore()
	resolver := newLinkResolver(store)

	for _, kind := range []changelog.Kind{changelog.AddPluginToDNSName, changelog.AddRecordTypeToDNSName} {
		c := &changelog.Change{Kind: kind, QName: "[dmz]host.example.com"}
		muts, err := translate(context.Background(), discardLogger(), store, resolver, c)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if muts != nil {
			t.Errorf("expected no mutation for bookkeeping kind %q, got %v", kind, muts)
		}
	}
}

func TestTranslateCreatePluginNodeDropsUnresolvedRawID(t *testing.T) {
	store := newFakeStore()
	resolver := newLinkResolver(store)
	c := &changelog.Change{Kind: changelog.CreatePluginNode, NodeID: "missing-raw-id"}

	muts, err := translate(context.Background(), discardLogger(), store, resolver, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if muts != nil {
		t.Errorf("expected dropping an unresolved raw id to produce no mutation, got %v", muts)
	}
}

func TestPublishUploadsAndAdvancesCheckpoint(t *testing.T) {
	store := newFakeStore()
	rem := &fakeRemote{}
	changes := []*changelog.Change{
		{ID: "1-0", Kind: changelog.Init},
	}

	if err := Publish(context.Background(), discardLogger(), store, rem, changes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rem.uploadedZips) != 1 {
		t.Errorf("expected exactly one bulk upload, got %d", len(rem.uploadedZips))
	}
	if store.checkpoint != "1-0" {
		t.Errorf("expected checkpoint to advance to the last change id, got %q", store.checkpoint)
	}
}

func TestPublishDedupsFragmentMutationsAgainstFreshUploads(t *testing.T) {
	store := newFakeStore()
	rem := &fakeRemote{}
	changes := []*changelog.Change{
		{ID: "1-0", Kind: changelog.CreateDNSName, QName: "[dmz]host.example.com"},
		{ID: "2-0", Kind: changelog.CreateDNSRecord, QName: "[dmz]host.example.com", RecordType: "TXT", RecordValue: "v=spf1"},
	}

	if err := Publish(context.Background(), discardLogger(), store, rem, changes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The dns name's fresh upload already reflects the record; the
	// AddFragment mutation for that same docid must be deduped away.
	if rem.addedFragments != 0 {
		t.Errorf("expected the fragment mutation to be deduped, got %d AddFragment calls", rem.addedFragments)
	}
}

func TestDataFragmentStringDataEmitsXrefs(t *testing.T) {
	store := newFakeStore()
	resolver := newLinkResolver(store)

	frags, err := dataFragment(context.Background(), resolver,
		&node.StringData{DataID: "summary", Content: "see (!(procnode|!|link-1)!) for details"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frags) != 1 {
		t.Fatalf("expected one fragment, got %d", len(frags))
	}
	xref, ok := frags[0].(*psml.XrefFragment)
	if !ok {
		t.Fatalf("expected an xref fragment, got %T", frags[0])
	}
	if xref.Docid != "node_link-1" || xref.Prefix != "see " || xref.Suffix != " for details" {
		t.Errorf("got %+v", xref)
	}
}

func TestSectionForPicksPluginVsReport(t *testing.T) {
	if got := sectionFor(changelog.DataKindPlugin); got != "plugin-data" {
		t.Errorf("got %q", got)
	}
	if got := sectionFor(changelog.DataKindReport); got != "report-data" {
		t.Errorf("got %q", got)
	}
}

func TestPublishEmptyBatchIsNoop(t *testing.T) {
	store := newFakeStore()
	rem := &fakeRemote{}
	if err := Publish(context.Background(), discardLogger(), store, rem, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rem.uploadedZips) != 0 {
		t.Errorf("expected no uploads for an empty batch")
	}
}
