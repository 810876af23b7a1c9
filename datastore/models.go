package datastore

import "time"

// Tables below mirror the keyspace, translated from namespaced redis keys
// into relational rows. Each table's comment names the key pattern it
// replaces.

// dnsNameRow backs the `dns` set of all QNames. It has no column for the
// `dns;<qname>;plugins` set.
type dnsNameRow struct {
	Name string `gorm:"primaryKey"`
	Network string `gorm:"index"`
}

// dnsRecordRow backs `dns;<qname>` (set of plugin;rtype;value triples).
type dnsRecordRow struct {
	ID uint `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"index"`
	Value string
	RType string
	Plugin string
}

// dnsMapRow backs `dns;<qname>;maps` (cross-network translations).
type dnsMapRow struct {
	ID uint `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"index"`
	To string
}

// rawNodeRow backs `nodes;<raw_id>;<n>` hash entries (one row per
// producer-contributed variant).
type rawNodeRow struct {
	ID uint `gorm:"primaryKey;autoIncrement"`
	RawID string `gorm:"index"`
	Name string
	DNSNames string // ';'-joined, same string that derives RawID
	LinkID string
	Exclusive bool
	Plugin string
}

// processedNodeRow backs `proc_nodes;<link_id>` plus its set companions.
type processedNodeRow struct {
	LinkID string `gorm:"primaryKey"`
	Name string
	AltNames string // ';'-joined
	DNSNames string // ';'-joined
	Plugins string // ';'-joined
	RawIDs string // ';'-joined
}

// procNodeRevRow backs `proc_node_revs` (raw_id -> link_id).
type procNodeRevRow struct {
	RawID string `gorm:"primaryKey"`
	LinkID string
}

// metadataRow backs `meta;<ns>;<id>`.
type metadataRow struct {
	ID uint `gorm:"primaryKey;autoIncrement"`
	ObjID string `gorm:"index"`
	Key string
	Value string
}

// pluginDataRow backs `pdata;<ns>;<id>` entries, discriminated by DataType.
type pluginDataRow struct {
	ID uint `gorm:"primaryKey;autoIncrement"`
	ObjID string `gorm:"index"`
	DataID string
	DataType string // "string" | "list" | "hash" | "table"
	Plugin string
	Title string
	Payload string // JSON-encoded body specific to DataType
}

// reportRow backs `reports;<id>`.
type reportRow struct {
	ReportID string `gorm:"primaryKey"`
	Plugin string
	Title string
	Length int
}

// changelogRow backs the `changelog` stream.
type changelogRow struct {
	SeqID uint `gorm:"primaryKey;autoIncrement"`
	Change string
	Value string
	Plugin string
	Extra string // JSON-encoded map[string]string
	CreatedAt time.Time
}

// settingsRow backs scalar keys: `default_network`, and the publish
// checkpoint (`last_change`, the id of the last published change).
type settingsRow struct {
	Key string `gorm:"primaryKey"`
	Value string
}

const (
	settingsKeyDefaultNetwork = "default_network"
	settingsKeyCheckpoint = "last_change"
)

func allModels() []any {
	return []any{
		&dnsNameRow{}, &dnsRecordRow{}, &dnsMapRow{},
		&rawNodeRow{}, &processedNodeRow{}, &procNodeRevRow{},
		&metadataRow{}, &pluginDataRow{}, &reportRow{},
		&changelogRow{}, &settingsRow{},
	}
}
