// Package changelog decodes the append-only change stream into typed
// Change values and tracks the publish checkpoint, grounded on
// original_source/src/data/model.rs's ChangeType/Change and
// redis_store.rs's get_changes.
package changelog

import (
	"strings"

	"github.com/netdox/netdox/neterr"
)

// Kind enumerates the change-stream entry kinds, including the two
// bookkeeping kinds whose translation is a pure no-op (AddPluginToDnsName,
// AddRecordTypeToDnsName) which the publisher must decode without
// choking on.
type Kind string

const (
	Init Kind = "init"
	CreateDNSName Kind = "create dns name"
	AddPluginToDNSName Kind = "add plugin to dns name"
	AddRecordTypeToDNSName Kind = "add record type to dns name"
	CreateDNSRecord Kind = "create dns record"
	CreatePluginNode Kind = "create plugin node"
	CreateReport Kind = "create report"
	UpdatedMetadata Kind = "updated metadata"
	CreatedData Kind = "created data"
	UpdatedData Kind = "updated data"
	UpdatedNetworkMapping Kind = "updated network mapping"
)

func parseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case Init, CreateDNSName, AddPluginToDNSName, AddRecordTypeToDNSName, CreateDNSRecord,
		CreatePluginNode, CreateReport, UpdatedMetadata, CreatedData, UpdatedData, UpdatedNetworkMapping:
		return k, nil
	default:
		return "", neterr.Datastoref(nil, "unrecognised changelog entry kind %q", s)
	}
}

// DataKind distinguishes plugin data from report data for the
// Created/UpdatedData payload.
type DataKind string

const (
	DataKindPlugin DataKind = "plugin"
	DataKindReport DataKind = "report"
)

// Change is one decoded change-stream entry.
type Change struct {
	ID string
	Kind Kind
	Plugin string

	// Fields populated depending on Kind; zero-valued otherwise.
	QName string // CreateDNSName, CreateDNSRecord(record.Name via RecordValue), UpdatedNetworkMapping
	FromNet string // UpdatedNetworkMapping
	ToNet string // UpdatedNetworkMapping
	NodeID string // CreatePluginNode
	ReportID string // CreateReport
	ObjID string // UpdatedMetadata, Created/UpdatedData ("dns;<qname>" or "nodes;<raw_id>")
	DataID string // Created/UpdatedData
	DataKind DataKind
	RecordValue, RecordType, RecordPlugin string // CreateDNSRecord
}

// Entry is the raw wire shape of one stream row, decoded into a Change by
// Decode.
type Entry struct {
	ID string
	Change string
	Value string
	Plugin string
	Extra map[string]string
}

// Decode translates a raw stream Entry into a typed Change.
func Decode(e Entry) (*Change, error) {
	kind, err := parseKind(e.Change)
	if err != nil {
		return nil, err
	}

	c := &Change{ID: e.ID, Kind: kind, Plugin: e.Plugin}

	switch kind {
	case Init:
		// no payload
	case CreateDNSName, AddPluginToDNSName, AddRecordTypeToDNSName:
		c.QName = e.Value
	case CreateDNSRecord:
		c.QName = e.Value
		c.RecordValue = e.Extra["value"]
		c.RecordType = e.Extra["rtype"]
		c.RecordPlugin = e.Plugin
	case CreatePluginNode:
		c.NodeID = e.Value
	case CreateReport:
		c.ReportID = e.Value
	case UpdatedMetadata:
		c.ObjID = e.Value
	case CreatedData, UpdatedData:
		c.ObjID = e.Extra["obj_id"]
		c.DataID = e.Value
		c.DataKind = DataKind(e.Extra["kind"])
	case UpdatedNetworkMapping:
		c.QName = e.Value
		c.FromNet = e.Extra["from_net"]
		c.ToNet = e.Extra["to_net"]
	}

	return c, nil
}
