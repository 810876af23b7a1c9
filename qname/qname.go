// Package qname implements the qualified-name grammar used throughout the
// engine: a `[network]unqualified` string identifying a DNS name within a
// specific network partition.
package qname

import (
	"regexp"
	"sort"
	"strings"

	"github.com/netdox/netdox/neterr"
)

// Name is a qualified DNS name, e.g. "[dmz]host.example.com".
type Name string

var grammar = regexp.MustCompile(`^\[[^\]]+\].+$`)

// Valid reports whether n matches the mandatory `[network]name` grammar.
func (n Name) Valid() bool {
	return grammar.MatchString(string(n))
}

// Network returns the bracketed network prefix, or an error if n is
// malformed.
func (n Name) Network() (string, error) {
	s := string(n)
	if !strings.HasPrefix(s, "[") {
		return "", neterr.Processf(nil, "qualified name %q missing network prefix", s)
	}
	end := strings.IndexByte(s, ']')
	if end < 0 || end == 1 {
		return "", neterr.Processf(nil, "qualified name %q missing network prefix", s)
	}
	return s[1:end], nil
}

// MustNetwork is Network but panics on a malformed name; only used where
// validity was already checked.
func (n Name) MustNetwork() string {
	net, err := n.Network()
	if err != nil {
		panic(err)
	}
	return net
}

// Set is a set of qualified names, canonicalised by Sorted for hashing and
// stable iteration.
type Set map[Name]struct{}

func NewSet(names ...Name) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s Set) Add(n Name) { s[n] = struct{}{} }

func (s Set) Has(n Name) bool {
	_, ok := s[n]
	return ok
}

// Subset reports whether every element of s is also in other.
func (s Set) Subset(other Set) bool {
	for n := range s {
		if !other.Has(n) {
			return false
		}
	}
	return true
}

// Union returns a new set containing the elements of both sets.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for n := range s {
		out[n] = struct{}{}
	}
	for n := range other {
		out[n] = struct{}{}
	}
	return out
}

// Sorted returns the elements of s in ascending lexicographic order.
func (s Set) Sorted() []Name {
	out := make([]Name, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Join concatenates the sorted elements with sep, forming the raw-node
// identity string used for row storage.
func (s Set) Join(sep string) string {
	names := s.Sorted()
	strs := make([]string, len(names))
	for i, n := range names {
		strs[i] = string(n)
	}
	return strings.Join(strs, sep)
}

func (s Set) Len() int { return len(s) }
