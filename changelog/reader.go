package changelog

import (
	"context"

	boom "github.com/tylertreat/BoomFilters"
)

// EntrySource is the narrow slice of the datastore contract the reader
// needs: raw stream rows strictly after a checkpoint id.
type EntrySource interface {
	GetChanges(ctx context.Context, from string) ([]Entry, error)
}

// Reader decodes a datastore's change stream into typed Changes and guards
// against reprocessing the same id twice when batch windows overlap.
//
// The replay guard is a bloom filter (github.com/tylertreat/BoomFilters),
// the same dedup tool owasp-amass-engine uses in plugins/dns/reverse.go
// for its CIDR sweep, reused here for changelog ids instead.
type Reader struct {
	source EntrySource
	seen   *boom.StableBloomFilter
}

// NewReader builds a Reader with a replay-guard sized for approximately
// capacity outstanding ids.
func NewReader(source EntrySource, capacity uint) *Reader {
	return &Reader{
		source: source,
		seen:   boom.NewDefaultStableBloomFilter(capacity, 0.01),
	}
}

// Read fetches and decodes every entry strictly after checkpoint, skipping
// any id the replay guard has already seen.
func (r *Reader) Read(ctx context.Context, checkpoint string) ([]*Change, error) {
	entries, err := r.source.GetChanges(ctx, checkpoint)
	if err != nil {
		return nil, err
	}

	out := make([]*Change, 0, len(entries))
	for _, e := range entries {
		if r.seen.TestAndAdd([]byte(e.ID)) {
			continue
		}
		c, err := Decode(e)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
