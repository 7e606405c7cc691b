// Package queryast defines the sum-typed tree the structured query
// templates are built from. Spec §9's design notes call for an explicit
// recursive walker over a sum type rather than a generic tree-walk over
// arbitrary data, so every node kind that can appear in a card's structured
// query is its own Go type implementing Node.
package queryast

import "github.com/google/uuid"

// Node is any element of a structured query tree: a reference, a
// placeholder awaiting substitution, or a compound clause.
type Node interface {
	isNode()
}

// DimensionRef is the pre-substitution placeholder `[:dimension "id"]`
// emitted by a rule's card/metric/filter templates. The template
// substituter (C7) walks the tree replacing every DimensionRef with the
// resolved reference for bindings[Identifier].
type DimensionRef struct {
	Identifier string
}

func (DimensionRef) isNode() {}

// FieldIDRef is the base structured reference for a field: `[:field-id id]`.
type FieldIDRef struct {
	FieldID uuid.UUID
}

func (FieldIDRef) isNode() {}

// FKRef is the structured reference for a field reached across a foreign
// key: `[:fk-> via fieldID]`. Via is either the link field on the root
// table (when the bound field came from a linked table) or the field's own
// FK column (when the field itself carries fk_target_field_id).
type FKRef struct {
	Via     uuid.UUID
	FieldID uuid.UUID
}

func (FKRef) isNode() {}

// DatetimeRef wraps a field reference that is temporal:
// `[:datetime-field inner unit]`.
type DatetimeRef struct {
	Inner Node
	Unit  string // defaults to "day" when the rule does not specify one
}

func (DatetimeRef) isNode() {}

// TableRef is a table-entity reference. Structured rendering of a bare
// table is left undefined, so this node exists only to let substitution
// pass a table-bound identifier through unchanged rather than failing.
type TableRef struct {
	TableID uuid.UUID
}

func (TableRef) isNode() {}

// AggregateFieldRef is an order-by target pointing at the i-th metric of a
// card: `[:aggregate-field i]`.
type AggregateFieldRef struct {
	Index int
}

func (AggregateFieldRef) isNode() {}

// TemplateExpr is a metric or filter definition's structured form: the
// definition's original template text (e.g. "(sum [[D1]])"), alongside the
// resolved structured reference for each bound dimension identifier among
// its `[[identifier]]` tokens, in order of first appearance. The operator/comparison syntax
// inside the template is opaque to this tree — only the identifier
// references are resolved, since metrics/filters have no concrete
// expression grammar defined here; a real query executor downstream is
// expected to interpret Template using Refs.
type TemplateExpr struct {
	Template string
	Refs     []Node
}

func (TemplateExpr) isNode() {}

// And combines multiple filter clauses: `[:and f1 f2 ...]`.
type And struct {
	Clauses []Node
}

func (And) isNode() {}

// OrderClause pairs a sort direction with its target (a dimension or
// aggregate-field reference).
type OrderClause struct {
	Direction string // "ascending" or "descending"
	Target    Node
}

// StructuredQuery is the body of a `{type=query, ...}` query tree (spec §6).
type StructuredQuery struct {
	SourceTable uuid.UUID
	Filter      Node // nil, a single clause, or an And
	Breakout    []Node
	Aggregation []Node
	Limit       *int
	OrderBy     []OrderClause
}

// NativeQuery is the body of a `{type=native, ...}` query tree.
type NativeQuery struct {
	Query string
}

// Query is the top-level produced query (spec §6): exactly one of
// Structured or Native is set.
type Query struct {
	Database   uuid.UUID
	Structured *StructuredQuery
	Native     *NativeQuery
}

// IsNative reports whether this is a native (string-SQL) query.
func (q Query) IsNative() bool {
	return q.Native != nil
}
