// Package rules holds the in-memory rule model (spec C4): a rule's
// required table type, its dimension/metric/filter definitions, its card
// specs, and the per-run Context that the binder, overload resolver,
// template substituter, and card expander all read from and write into.
// Rules are loaded once and never mutated during a run (spec §5).
package rules

import (
	"fmt"
	"regexp"

	"github.com/ekaya-inc/xray-engine/pkg/catalog"
	"github.com/ekaya-inc/xray-engine/pkg/xtype"
)

// Dimension is a symbolic placeholder bound at run time to one or more
// concrete fields (spec §3 Dimension definition).
type Dimension struct {
	// FieldType is either [field-type] (root table) or
	// [table-type, field-type] (a linked table).
	FieldType []xtype.Type
	// NamedSource is the regex source for the optional `named` constraint;
	// empty means unconstrained.
	NamedSource string
	Named       *regexp.Regexp
	// LinksTo, if non-empty, constrains candidates to those whose Link
	// points at a table of this type.
	LinksTo xtype.Type
	Score   int
}

// IsRootScoped reports whether this dimension binds directly against the
// root table's fields ([field-type], one element) rather than a linked
// table's ([table-type, field-type], two elements).
func (d Dimension) IsRootScoped() bool {
	return len(d.FieldType) == 1
}

// TableType returns the required table type for a linked-table dimension,
// or "" for a root-scoped one.
func (d Dimension) TableType() xtype.Type {
	if len(d.FieldType) == 2 {
		return d.FieldType[0]
	}
	return ""
}

// FieldSpec returns the field-type constraint, which is the sole element
// for a root-scoped dimension or the second element for a linked one.
func (d Dimension) FieldSpec() xtype.Type {
	return d.FieldType[len(d.FieldType)-1]
}

// BoundDimension is a Dimension after binding: the definition plus the set
// of matching fields found for it (spec §3: "After binding it gains a
// matches field").
type BoundDimension struct {
	Dimension
	Matches []catalog.Field
}

// Definition is a metric or filter: a template expression plus a score,
// optionally referencing dimension identifiers (spec §3). DimensionRefs is
// populated by Validate, scanning Template for `[[identifier]]` tokens that
// name a dimension of the owning rule.
type Definition struct {
	Template      string
	Score         int
	DimensionRefs []string
}

// OrderSpec is one entry of a card's order_by list.
type OrderSpec struct {
	Identifier string
	Direction  string // "ascending" or "descending"
}

// CardSpec is one card specification (spec §3 Card specification).
type CardSpec struct {
	Name          string
	Metrics       []string
	Filters       []string
	Dimensions    []string
	Query         string // native SQL with [[id]] placeholders; empty for structured cards
	Limit         *int
	OrderBy       []OrderSpec
	Score         int
	Title         string
	Description   string
	Visualization map[string]any
}

// IsNative reports whether this card has a literal native query, per
// spec §4.7 step 3's "If the card has a literal native query" branch.
func (c CardSpec) IsNative() bool {
	return c.Query != ""
}

// MapDimensions returns the dimension identifiers named at the
// documented map.latitude_column / map.longitude_column key paths of a
// card's visualization, if present (spec §3).
func (c CardSpec) MapDimensions() (lat, lon string, ok bool) {
	m, isMap := c.Visualization["map"].(map[string]any)
	if !isMap {
		return "", "", false
	}
	latVal, latOK := m["latitude_column"].(string)
	lonVal, lonOK := m["longitude_column"].(string)
	if !latOK || !lonOK {
		return "", "", false
	}
	return latVal, lonVal, true
}

// Rule is the in-memory representation of a heuristic rule (spec §3).
// Rules are immutable during a run.
type Rule struct {
	Name        string
	TableType   xtype.Type
	Title       string
	Description string
	MaxScore    int

	DimensionOrder []string
	// Dimensions maps an identifier to every overloaded definition declared
	// for it (mirroring Metrics/Filters). Overload resolution only picks a
	// winner once each candidate has been bound against the catalog (the
	// binder does this), so this stays unreduced until then.
	Dimensions map[string][]Dimension

	Metrics map[string][]Definition
	Filters map[string][]Definition

	CardOrder []string
	Cards     map[string]CardSpec
}

// DimensionNames returns the rule's dimension identifiers in declaration
// order.
func (r Rule) DimensionNames() []string {
	return r.DimensionOrder
}

// identifierPattern finds `[[identifier]]` tokens shared by C7's template
// substituter and the rule validator's dimension-reference extraction.
var identifierPattern = regexp.MustCompile(`\[\[([A-Za-z0-9_.:-]+)]]`)

// IdentifierPattern returns the shared `[[identifier]]` token pattern, so
// the template substituter (C7) scans for exactly the same tokens the rule
// validator does.
func IdentifierPattern() *regexp.Regexp {
	return identifierPattern
}

// ExtractIdentifiers returns every `[[identifier]]` token found in s, in
// order of first appearance, deduplicated.
func ExtractIdentifiers(s string) []string {
	matches := identifierPattern.FindAllStringSubmatch(s, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		id := m[1]
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Validate checks every semantic type the rule references against
// lattice, and populates DimensionRefs on every metric/filter Definition
// by scanning its template for identifiers that name one of the rule's
// dimensions. It does not validate that cards reference declared
// metrics/filters/dimensions: a card naming an unknown identifier is a
// malformed rule, which spec §7 says callers are responsible for
// upstream, not this component.
func (r *Rule) Validate(lattice *xtype.Lattice) error {
	types := []xtype.Type{r.TableType}
	for _, defs := range r.Dimensions {
		for _, d := range defs {
			types = append(types, d.FieldType...)
			if d.LinksTo != "" {
				types = append(types, d.LinksTo)
			}
		}
	}
	if err := lattice.Validate(types...); err != nil {
		return fmt.Errorf("rule %q: %w", r.Name, err)
	}

	for identifier, defs := range r.Metrics {
		for i := range defs {
			defs[i].DimensionRefs = referencedDimensions(defs[i].Template, r.Dimensions)
		}
		r.Metrics[identifier] = defs
	}
	for identifier, defs := range r.Filters {
		for i := range defs {
			defs[i].DimensionRefs = referencedDimensions(defs[i].Template, r.Dimensions)
		}
		r.Filters[identifier] = defs
	}
	return nil
}

func referencedDimensions(template string, dims map[string][]Dimension) []string {
	var refs []string
	for _, id := range ExtractIdentifiers(template) {
		if _, ok := dims[id]; ok {
			refs = append(refs, id)
		}
	}
	return refs
}

// UsedDimensionsOf returns the union of dimension identifiers referenced
// by a card's own dimension list, its metrics, its filters, and (for
// native cards) its query template — spec §4.7 step 4.
func (r Rule) UsedDimensionsOf(card CardSpec) []string {
	seen := make(map[string]bool)
	var used []string
	// An identifier need not name a declared dimension: it may be an
	// entity reference, which the card expander resolves against context
	// tables instead (spec §4.7 step 5).
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			used = append(used, id)
		}
	}

	for _, id := range card.Dimensions {
		add(id)
	}
	for _, id := range card.Metrics {
		for _, def := range r.Metrics[id] {
			for _, ref := range def.DimensionRefs {
				add(ref)
			}
		}
	}
	for _, id := range card.Filters {
		for _, def := range r.Filters[id] {
			for _, ref := range def.DimensionRefs {
				add(ref)
			}
		}
	}
	if card.IsNative() {
		for _, id := range ExtractIdentifiers(card.Query) {
			if _, isDim := r.Dimensions[id]; isDim {
				add(id)
			}
		}
	}
	return used
}
