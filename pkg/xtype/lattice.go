// Package xtype implements the closed-world semantic type lattice (spec C1):
// a single-inheritance hierarchy over identifiers like Number, Integer,
// Temporal, Date, Text, Boolean, and the structural markers PK and FK.
// Rules are written against these identifiers rather than Go types, so the
// lattice is the one place that knows how "Integer" relates to "Number".
package xtype

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ekaya-inc/xray-engine/pkg/apperrors"
)

// Type is a semantic type identifier, e.g. "Number", "Date".
// Comparisons are case-sensitive; rule authors are expected to use the
// canonical casing declared when the lattice was built.
type Type string

// Root types any reasonable lattice declares. A Lattice is not required to
// use these names, but the in-memory fixture catalog and the bundled demo
// rules do.
const (
	Number   Type = "Number"
	Integer  Type = "Integer"
	Temporal Type = "Temporal"
	Date     Type = "Date"
	DateTime Type = "DateTime"
	Text     Type = "Text"
	Boolean  Type = "Boolean"
	PK       Type = "PK"
	FK       Type = "FK"
	Unknown  Type = "Unknown"
	Any      Type = "Any"
)

// Lattice is a single-inheritance hierarchy: every type has at most one
// declared parent. It is built once (typically alongside the rule library)
// and never mutated during a run.
type Lattice struct {
	parent map[Type]Type // child -> parent; root types are absent from this map
	known  map[Type]bool
}

// NewLattice builds a Lattice from a set of (child -> parent) edges. Root
// types (those with no parent) must still be passed with an empty-string
// parent so they are registered as known.
//
//	xtype.NewLattice(map[xtype.Type]xtype.Type{
//	    xtype.Number:   "",
//	    xtype.Integer:  xtype.Number,
//	    xtype.Temporal: "",
//	    xtype.Date:     xtype.Temporal,
//	})
func NewLattice(edges map[Type]Type) *Lattice {
	l := &Lattice{
		parent: make(map[Type]Type, len(edges)),
		known:  make(map[Type]bool, len(edges)),
	}
	for child, parent := range edges {
		l.known[child] = true
		if parent != "" {
			l.known[parent] = true
			l.parent[child] = parent
		}
	}
	return l
}

// DefaultLattice returns the lattice assumed by the bundled demo rules and
// fixtures: Number > Integer, Temporal > Date | DateTime, the unrelated
// roots Text, Boolean, PK, FK, plus the entity types the bundled
// fixtures/catalog.yaml and rules/order.yaml declare (Order, Customer,
// Product — unrelated roots, since this fixture schema has no entity
// supertyping of its own).
func DefaultLattice() *Lattice {
	return NewLattice(map[Type]Type{
		Number:   "",
		Integer:  Number,
		Temporal: "",
		Date:     Temporal,
		DateTime: Temporal,
		Text:     "",
		Boolean:  "",
		PK:       "",
		FK:       "",
		Type("Order"):    "",
		Type("Customer"): "",
		Type("Product"):  "",
	})
}

// Has reports whether t was registered in this lattice.
func (l *Lattice) Has(t Type) bool {
	return l.known[t]
}

// Validate checks that every type in types is known to the lattice,
// returning a single wrapped error naming every undeclared type it finds.
// Rule loaders call this at load time so that a rule referencing an
// undeclared type fails loudly instead of silently never matching.
func (l *Lattice) Validate(types ...Type) error {
	var missing []string
	seen := make(map[Type]bool)
	for _, t := range types {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		if !l.known[t] {
			missing = append(missing, string(t))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s", apperrors.ErrUnknownType, strings.Join(missing, ", "))
}

// IsA reports whether child is ancestor, or a descendant of ancestor, via
// the transitive reflexive closure of the declared parent edges. Unknown
// types are never is-a anything (including themselves) except literal
// equality, since the lattice is closed-world and an unvalidated rule
// should not silently match everything.
func (l *Lattice) IsA(child, ancestor Type) bool {
	if child == ancestor {
		return true
	}
	current := child
	for {
		parent, ok := l.parent[current]
		if !ok {
			return false
		}
		if parent == ancestor {
			return true
		}
		current = parent
	}
}

// AncestorChain returns t's ancestors ordered from t itself to the lattice
// root, e.g. AncestorChain(Integer) = [Integer, Number].
func (l *Lattice) AncestorChain(t Type) []Type {
	chain := []Type{t}
	current := t
	for {
		parent, ok := l.parent[current]
		if !ok {
			return chain
		}
		chain = append(chain, parent)
		current = parent
	}
}

// AncestorCount returns len(AncestorChain(t)); used by the best-rule
// selector (C9) to prefer the most specific applicable rule.
func (l *Lattice) AncestorCount(t Type) int {
	return len(l.AncestorChain(t))
}
