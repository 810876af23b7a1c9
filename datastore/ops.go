package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/netdox/netdox/changelog"
	netdoxdns "github.com/netdox/netdox/dns"
	"github.com/netdox/netdox/neterr"
	"github.com/netdox/netdox/node"
	"github.com/netdox/netdox/qname"
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func seqIDString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, sep)
}

func (s *Store) AllDNSNames(ctx context.Context) ([]qname.Name, error) {
	var rows []dnsNameRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, neterr.Datastoref(err, "reading dns names")
	}
	out := make([]qname.Name, len(rows))
	for i, r := range rows {
		out[i] = qname.Name(r.Name)
	}
	return out, nil
}

func (s *Store) DNSRecords(ctx context.Context, name qname.Name) ([]netdoxdns.Record, error) {
	var rows []dnsRecordRow
	if err := s.db.WithContext(ctx).Where("name = ?", string(name)).Find(&rows).Error; err != nil {
		return nil, neterr.Datastoref(err, "reading dns records for %q", name)
	}
	out := make([]netdoxdns.Record, len(rows))
	for i, r := range rows {
		out[i] = netdoxdns.Record{Name: name, Value: r.Value, RType: r.RType, Plugin: r.Plugin}
	}
	return out, nil
}

func (s *Store) DNSTranslations(ctx context.Context, name qname.Name) ([]qname.Name, error) {
	var rows []dnsMapRow
	if err := s.db.WithContext(ctx).Where("name = ?", string(name)).Find(&rows).Error; err != nil {
		return nil, neterr.Datastoref(err, "reading dns translations for %q", name)
	}
	out := make([]qname.Name, len(rows))
	for i, r := range rows {
		out[i] = qname.Name(r.To)
	}
	return out, nil
}

func (s *Store) AllRawNodes(ctx context.Context) ([]*node.Raw, error) {
	var rows []rawNodeRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, neterr.Datastoref(err, "reading raw nodes")
	}
	out := make([]*node.Raw, len(rows))
	for i, r := range rows {
		names := qname.NewSet()
		for _, n := range splitNonEmpty(r.DNSNames, ";") {
			names.Add(qname.Name(n))
		}
		out[i] = &node.Raw{
			Name: r.Name,
			DNSNames: names,
			LinkID: r.LinkID,
			Exclusive: r.Exclusive,
			Plugin: r.Plugin,
		}
	}
	return out, nil
}

// PutProcessedNode persists pn under its link id, enforcing the non-empty
// write invariant (node.Processed.Validate) before touching the database.
func (s *Store) PutProcessedNode(ctx context.Context, pn *node.Processed) error {
	if err := pn.Validate(); err != nil {
		return err
	}

	row := processedNodeRow{
		LinkID: pn.LinkID,
		Name: pn.Name,
		AltNames: strings.Join(setKeys(pn.AltNames), ";"),
		DNSNames: pn.DNSNames.Join(";"),
		Plugins: strings.Join(setKeys(pn.Plugins), ";"),
		RawIDs: strings.Join(setKeys(pn.RawIDs), ";"),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		for rawID := range pn.RawIDs {
			if err := tx.Save(&procNodeRevRow{RawID: rawID, LinkID: pn.LinkID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return neterr.Datastoref(err, "writing processed node %q", pn.LinkID)
	}
	s.cache.SetProcessedNode(pn)
	return nil
}

func setKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func rowToProcessed(row processedNodeRow) *node.Processed {
	pn := &node.Processed{
		Name: row.Name,
		LinkID: row.LinkID,
		AltNames: make(map[string]struct{}),
		DNSNames: qname.NewSet(),
		Plugins: make(map[string]struct{}),
		RawIDs: make(map[string]struct{}),
	}
	for _, n := range splitNonEmpty(row.AltNames, ";") {
		pn.AltNames[n] = struct{}{}
	}
	for _, n := range splitNonEmpty(row.DNSNames, ";") {
		pn.DNSNames.Add(qname.Name(n))
	}
	for _, p := range splitNonEmpty(row.Plugins, ";") {
		pn.Plugins[p] = struct{}{}
	}
	for _, r := range splitNonEmpty(row.RawIDs, ";") {
		pn.RawIDs[r] = struct{}{}
	}
	return pn
}

func (s *Store) ProcessedNodeByLinkID(ctx context.Context, linkID string) (*node.Processed, bool, error) {
	if pn, ok := s.cache.GetProcessedNode(linkID); ok {
		return pn, true, nil
	}

	var row processedNodeRow
	err := s.db.WithContext(ctx).Where("link_id = ?", linkID).First(&row).Error
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, neterr.Datastoref(err, "reading processed node %q", linkID)
	}
	pn := rowToProcessed(row)
	s.cache.SetProcessedNode(pn)
	return pn, true, nil
}

func (s *Store) ProcessedNodeByRawID(ctx context.Context, rawID string) (*node.Processed, bool, error) {
	var rev procNodeRevRow
	err := s.db.WithContext(ctx).Where("raw_id = ?", rawID).First(&rev).Error
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, neterr.Datastoref(err, "reading processed node reverse index for raw id %q", rawID)
	}
	return s.ProcessedNodeByLinkID(ctx, rev.LinkID)
}

func (s *Store) Metadata(ctx context.Context, objID string) (map[string]string, error) {
	var rows []metadataRow
	if err := s.db.WithContext(ctx).Where("obj_id = ?", objID).Find(&rows).Error; err != nil {
		return nil, neterr.Datastoref(err, "reading metadata for %q", objID)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (s *Store) Data(ctx context.Context, objID, dataID string) (node.Data, error) {
	var row pluginDataRow
	err := s.db.WithContext(ctx).Where("obj_id = ? AND data_id = ?", objID, dataID).First(&row).Error
	if err != nil {
		return nil, neterr.Datastoref(err, "reading plugin data %q/%q", objID, dataID)
	}
	return decodePluginData(row)
}

func decodePluginData(row pluginDataRow) (node.Data, error) {
	switch row.DataType {
	case "string":
		var d node.StringData
		if err := json.Unmarshal([]byte(row.Payload), &d); err != nil {
			return nil, neterr.Datastoref(err, "decoding string data %q", row.DataID)
		}
		d.DataID, d.DataPlugin = row.DataID, row.Plugin
		return &d, nil
	case "list":
		var d node.ListData
		if err := json.Unmarshal([]byte(row.Payload), &d); err != nil {
			return nil, neterr.Datastoref(err, "decoding list data %q", row.DataID)
		}
		d.DataID, d.DataPlugin = row.DataID, row.Plugin
		return &d, nil
	case "hash":
		var d node.HashData
		if err := json.Unmarshal([]byte(row.Payload), &d); err != nil {
			return nil, neterr.Datastoref(err, "decoding hash data %q", row.DataID)
		}
		d.DataID, d.DataPlugin = row.DataID, row.Plugin
		return &d, nil
	case "table":
		var d node.TableData
		if err := json.Unmarshal([]byte(row.Payload), &d); err != nil {
			return nil, neterr.Datastoref(err, "decoding table data %q", row.DataID)
		}
		d.DataID, d.DataPlugin = row.DataID, row.Plugin
		return &d, nil
	default:
		return nil, neterr.Datastoref(nil, "unrecognised plugin data type %q", row.DataType)
	}
}

// QualifyDNSNames mirrors the netdox_qualify_dns_names stored procedure:
// names already carrying a network prefix pass through; bare names are
// qualified with the configured default network.
func (s *Store) QualifyDNSNames(ctx context.Context, names []string) ([]qname.Name, error) {
	net, err := s.DefaultNetwork(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]qname.Name, len(names))
	for i, n := range names {
		q := qname.Name(n)
		if q.Valid() {
			out[i] = q
			continue
		}
		out[i] = qname.Name("[" + net + "]" + n)
	}
	return out, nil
}

// RawIDFromQNames mirrors get_raw_id_from_qnames: joins and sorts the
// given names into the canonical raw-node id string.
func (s *Store) RawIDFromQNames(ctx context.Context, names []string) (string, error) {
	set := qname.NewSet()
	for _, n := range names {
		set.Add(qname.Name(n))
	}
	return set.Join(";"), nil
}

func (s *Store) DefaultNetwork(ctx context.Context) (string, error) {
	var row settingsRow
	err := s.db.WithContext(ctx).Where("key = ?", settingsKeyDefaultNetwork).First(&row).Error
	if err != nil {
		if isNotFound(err) {
			return "", neterr.Configf(nil, "default_network is not set")
		}
		return "", neterr.Datastoref(err, "reading default_network")
	}
	return row.Value, nil
}

func (s *Store) Checkpoint(ctx context.Context) (string, error) {
	var row settingsRow
	err := s.db.WithContext(ctx).Where("key = ?", settingsKeyCheckpoint).First(&row).Error
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", neterr.Datastoref(err, "reading checkpoint")
	}
	return row.Value, nil
}

func (s *Store) SetCheckpoint(ctx context.Context, id string) error {
	row := settingsRow{Key: settingsKeyCheckpoint, Value: id}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return neterr.Datastoref(err, "advancing checkpoint to %q", id)
	}
	return nil
}

// GetChanges implements changelog.EntrySource: every changelog row with a
// sequence id strictly after from.
func (s *Store) GetChanges(ctx context.Context, from string) ([]changelog.Entry, error) {
	q := s.db.WithContext(ctx).Model(&changelogRow{}).Order("seq_id asc")
	if from != "" {
		fromID, err := strconv.ParseUint(from, 10, 64)
		if err != nil {
			return nil, neterr.Datastoref(err, "invalid changelog checkpoint %q", from)
		}
		q = q.Where("seq_id > ?", fromID)
	}

	var rows []changelogRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, neterr.Datastoref(err, "reading changelog from %q", from)
	}

	out := make([]changelog.Entry, len(rows))
	for i, r := range rows {
		var extra map[string]string
		if r.Extra != "" {
			if err := json.Unmarshal([]byte(r.Extra), &extra); err != nil {
				return nil, neterr.Datastoref(err, "decoding changelog extra fields for entry %d", r.SeqID)
			}
		}
		out[i] = changelog.Entry{
			ID: seqIDString(r.SeqID),
			Change: r.Change,
			Value: r.Value,
			Plugin: r.Plugin,
			Extra: extra,
		}
	}
	return out, nil
}
