// Package psml is the minimal document-tree model the publisher builds
// fragments against: documents own sections, sections own fragments.
//
// The wire serialization of the real publishing target is explicitly out
// of scope; this package exists only so the publisher's document
// builders (node_document, dns_document, report_document,
// changelog_document) have a concrete return type, grounded on
// original_source's psml.rs/links.rs fragment shapes.
package psml

import "encoding/xml"

// Document is the top-level publishing unit, identified by a docid.
type Document struct {
	XMLName xml.Name `xml:"document"`
	URI string `xml:"uri,attr"`
	Sections []Section `xml:"section"`
}

// Section owns an ordered list of fragments, identified within the
// document by ID.
type Section struct {
	ID string `xml:"id,attr"`
	Fragments []Fragment `xml:"fragment"`
}

// Fragment is a tagged union: text, typed properties, or a cross-document
// reference.
type Fragment interface {
	FragmentID() string
	isFragment()
}

// TextFragment holds free-form paragraph content.
type TextFragment struct {
	ID string
	Text string
}

func (f *TextFragment) FragmentID() string { return f.ID }
func (*TextFragment) isFragment() {}

// PropertyValueKind tags a Property's Value interpretation.
type PropertyValueKind string

const (
	PropertyString PropertyValueKind = "string"
	PropertyXRef PropertyValueKind = "xref"
	PropertyDate PropertyValueKind = "date"
)

// Property is one key/value entry of a PropertiesFragment.
type Property struct {
	Name string
	Kind PropertyValueKind
	Value string // docid when Kind == PropertyXRef
}

// PropertiesFragment is a typed key/value fragment.
type PropertiesFragment struct {
	ID string
	Properties []Property
}

func (f *PropertiesFragment) FragmentID() string { return f.ID }
func (*PropertiesFragment) isFragment() {}

// XrefFragment is a standalone cross-document reference fragment, used for
// the "inline markup" link-resolution case.
type XrefFragment struct {
	ID string
	Docid string
	Prefix string
	Suffix string
}

func (f *XrefFragment) FragmentID() string { return f.ID }
func (*XrefFragment) isFragment() {}

// NewDocument builds an empty document for uri.
func NewDocument(uri string) *Document {
	return &Document{URI: uri}
}

// Section returns the named section, creating it if absent.
func (d *Document) Section(id string) *Section {
	for i := range d.Sections {
		if d.Sections[i].ID == id {
			return &d.Sections[i]
		}
	}
	d.Sections = append(d.Sections, Section{ID: id})
	return &d.Sections[len(d.Sections)-1]
}

// AddFragment appends frag to the named section.
func (d *Document) AddFragment(section string, frag Fragment) {
	s := d.Section(section)
	s.Fragments = append(s.Fragments, frag)
}

// ReplaceFragment overwrites the fragment with a matching id anywhere in
// the document, or appends it to "default" if not found — mirrors the
// publisher's ReplaceFragment mutation being safe to re-execute against a
// document that does not yet carry the fragment.
func (d *Document) ReplaceFragment(frag Fragment) {
	for si := range d.Sections {
		for fi, existing := range d.Sections[si].Fragments {
			if existing.FragmentID() == frag.FragmentID() {
				d.Sections[si].Fragments[fi] = frag
				return
			}
		}
	}
	d.AddFragment("default", frag)
}

// Fragment looks up a fragment by id.
func (d *Document) Fragment(id string) (Fragment, bool) {
	for _, s := range d.Sections {
		for _, f := range s.Fragments {
			if f.FragmentID() == id {
				return f, true
			}
		}
	}
	return nil, false
}
