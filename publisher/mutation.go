package publisher

import "github.com/netdox/netdox/psml"

// Mutation is one of the three document-level mutation kinds the
// publisher issues against the remote document store.
type Mutation interface {
	// TargetDocID is the document the mutation ultimately affects; used by
	// the dedup pass to match mutations against fresh uploads.
	TargetDocID() string
}

// Upload is a new top-level document to be bulk-uploaded.
type Upload struct {
	Doc *psml.Document
}

func (u *Upload) TargetDocID() string { return u.Doc.URI }

// AddFragment inserts a fragment into a named section of an existing
// document.
type AddFragment struct {
	DocID      string
	Section    string
	FragmentID string
	Content    psml.Fragment
}

func (a *AddFragment) TargetDocID() string { return a.DocID }

// ReplaceFragment overwrites a fragment by id.
type ReplaceFragment struct {
	DocID      string
	FragmentID string
	Content    psml.Fragment
}

func (r *ReplaceFragment) TargetDocID() string { return r.DocID }
