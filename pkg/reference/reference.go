// Package reference implements the reference resolver (spec C3): given a
// bound field or table and a requested rendering form, it produces either
// a structured-query node, a free-text display name, or a native-SQL
// identifier. Spec §9's design notes frame this as dynamic dispatch on a
// (template_type, entity-kind) pair; here that becomes a 3x2 Go type
// switch rather than a generic visitor, per the same design note's
// guidance against over-generalizing a tree-walk.
package reference

import (
	"fmt"

	"github.com/ekaya-inc/xray-engine/pkg/catalog"
	"github.com/ekaya-inc/xray-engine/pkg/queryast"
	"github.com/ekaya-inc/xray-engine/pkg/xtype"
)

// TemplateType selects the rendering form requested of the resolver.
type TemplateType int

const (
	Structured TemplateType = iota
	Text
	Native
)

// Resolve renders entity (a catalog.Field or catalog.Table) in the
// requested template type. Unknown entity kinds pass through unchanged,
// supporting partially-resolved templates (spec §4.3).
func Resolve(tt TemplateType, entity any, lattice *xtype.Lattice, tables catalog.Catalog) (any, error) {
	switch e := entity.(type) {
	case catalog.Field:
		return resolveField(tt, e, lattice, tables)
	case catalog.Table:
		return resolveTable(tt, e), nil
	default:
		return entity, nil
	}
}

func resolveField(tt TemplateType, f catalog.Field, lattice *xtype.Lattice, tables catalog.Catalog) (any, error) {
	switch tt {
	case Structured:
		return structuredFieldRef(f, lattice), nil
	case Text:
		return f.DisplayName, nil
	case Native:
		table, err := tables.Table(f.TableID)
		if err != nil {
			return nil, fmt.Errorf("reference: resolving native field reference: %w", err)
		}
		return fmt.Sprintf("%s.%s", table.Name, f.Name), nil
	default:
		return f, nil
	}
}

func resolveTable(tt TemplateType, t catalog.Table) any {
	switch tt {
	case Structured:
		// No structured rendering of a bare table is defined (spec §4.3's
		// table has "—" in this cell); pass it through as a typed
		// reference so a tree-walk can still recognize it later.
		return queryast.TableRef{TableID: t.ID}
	case Text:
		return t.DisplayName
	case Native:
		return t.Name
	default:
		return t
	}
}

// structuredFieldRef builds the structured-query node for a field,
// implementing spec §4.3's table and invariant 5: the base form is
// field-id, or fk-> when the field was reached via a link or carries its
// own FK target, wrapped in a datetime-field form when the field's base
// type is-a Temporal.
func structuredFieldRef(f catalog.Field, lattice *xtype.Lattice) queryast.Node {
	var base queryast.Node
	switch {
	case f.Link != nil:
		base = queryast.FKRef{Via: *f.Link, FieldID: f.ID}
	case f.FKTargetFieldID != nil:
		base = queryast.FKRef{Via: f.ID, FieldID: *f.FKTargetFieldID}
	default:
		base = queryast.FieldIDRef{FieldID: f.ID}
	}

	if lattice.IsA(f.BaseType, xtype.Temporal) {
		return queryast.DatetimeRef{Inner: base, Unit: "day"}
	}
	return base
}
