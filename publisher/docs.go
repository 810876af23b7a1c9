package publisher

import (
	"context"
	"fmt"
	"sort"

	"github.com/netdox/netdox/datastore"
	"github.com/netdox/netdox/node"
	"github.com/netdox/netdox/psml"
	"github.com/netdox/netdox/qname"
)

// Document builders, one per docid family. Each returns a fresh
// document carrying only the fragments derivable at creation time; later
// changes reach the same docid through AddFragment/ReplaceFragment
// mutations rather than re-upload.

func dnsDocument(ctx context.Context, store datastore.Datastore, name qname.Name) (*psml.Document, error) {
	doc := psml.NewDocument(dnsDocID(name))

	records, err := store.DNSRecords(ctx, name)
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].RType != records[j].RType {
			return records[i].RType < records[j].RType
		}
		return records[i].Value < records[j].Value
	})
	for i, rec := range records {
		doc.AddFragment("records", &psml.PropertiesFragment{
			ID: fmt.Sprintf("record_%d", i),
			Properties: []psml.Property{
				{Name: "type", Kind: psml.PropertyString, Value: rec.RType},
				{Name: "value", Kind: psml.PropertyString, Value: rec.Value},
				{Name: "plugin", Kind: psml.PropertyString, Value: rec.Plugin},
			},
		})
	}

	meta, err := store.Metadata(ctx, "dns;"+string(name))
	if err != nil {
		return nil, err
	}
	addMetaFragment(doc, meta)

	return doc, nil
}

func nodeDocument(pn *node.Processed) *psml.Document {
	doc := psml.NewDocument(nodeDocID(pn.LinkID))

	var alt []string
	for n := range pn.AltNames {
		alt = append(alt, n)
	}
	sort.Strings(alt)

	props := []psml.Property{
		{Name: "name", Kind: psml.PropertyString, Value: pn.Name},
		{Name: "dns_names", Kind: psml.PropertyString, Value: pn.DNSNames.Join(", ")},
	}
	for _, n := range alt {
		props = append(props, psml.Property{Name: "alt_name", Kind: psml.PropertyString, Value: n})
	}
	doc.AddFragment("identity", &psml.PropertiesFragment{ID: "identity", Properties: props})

	return doc
}

func reportDocument(reportID string) *psml.Document {
	doc := psml.NewDocument(reportDocID(reportID))
	doc.AddFragment("identity", &psml.PropertiesFragment{
		ID: "identity",
		Properties: []psml.Property{
			{Name: "report_id", Kind: psml.PropertyString, Value: reportID},
		},
	})
	return doc
}

func changelogDocument() *psml.Document {
	doc := psml.NewDocument(changelogDocID)
	doc.AddFragment("log", &psml.TextFragment{ID: "last_change", Text: ""})
	return doc
}

func addMetaFragment(doc *psml.Document, meta map[string]string) {
	if len(meta) == 0 {
		return
	}
	var keys []string
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	props := make([]psml.Property, 0, len(keys))
	for _, k := range keys {
		props = append(props, psml.Property{Name: k, Kind: psml.PropertyString, Value: meta[k]})
	}
	doc.ReplaceFragment(&psml.PropertiesFragment{ID: "meta", Properties: props})
}
