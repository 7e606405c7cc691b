// Package template implements the template substituter (spec C7): string
// templates carrying `[[identifier]]` tokens, and structured-query trees
// carrying queryast.DimensionRef placeholders, both resolved against a
// bindings map via the reference resolver (C3).
//
// Grounded on a SQL-layer parameter_syntax.go / column_parser.go token
// scanning idiom for the string half, and on queryast's own sum-type
// design note for the tree-walk half.
package template

import (
	"fmt"

	"github.com/ekaya-inc/xray-engine/pkg/catalog"
	"github.com/ekaya-inc/xray-engine/pkg/queryast"
	"github.com/ekaya-inc/xray-engine/pkg/reference"
	"github.com/ekaya-inc/xray-engine/pkg/rules"
	"github.com/ekaya-inc/xray-engine/pkg/xtype"
)

// identifierToken matches the same `[[identifier]]` shape rules.Rule
// scans for dimension references.
var identifierToken = rules.IdentifierPattern()

// Bindings maps an identifier to the bound entity (a catalog.Field or
// catalog.Table) chosen for one concrete card instantiation.
type Bindings map[string]any

// EntityReference resolves an identifier of the form described in spec §6
// ("this", a bare table-type name) to the table-type the catalog should be
// filtered by. "this" means the root table's own entity type.
func EntityReference(identifier string, rootType xtype.Type) xtype.Type {
	if identifier == "this" {
		return rootType
	}
	return xtype.Type(identifier)
}

// String substitutes every `[[identifier]]` token in s (spec §4.6): each
// token resolves via bindings, then falls back to the first context table
// matching the identifier as an entity reference, then falls back to the
// raw identifier string, and is finally rendered via the reference
// resolver at the requested template type.
func String(s string, bindings Bindings, ctx rules.Context, tt reference.TemplateType, lattice *xtype.Lattice, cat catalog.Catalog) (string, error) {
	var buildErr error
	out := identifierToken.ReplaceAllStringFunc(s, func(token string) string {
		if buildErr != nil {
			return token
		}
		id := identifierToken.FindStringSubmatch(token)[1]
		rendered, err := renderToken(id, bindings, ctx, tt, lattice, cat)
		if err != nil {
			buildErr = err
			return token
		}
		return fmt.Sprint(rendered)
	})
	if buildErr != nil {
		return "", buildErr
	}
	return out, nil
}

func renderToken(id string, bindings Bindings, ctx rules.Context, tt reference.TemplateType, lattice *xtype.Lattice, cat catalog.Catalog) (any, error) {
	entity, ok := bindings[id]
	if !ok {
		entityType := EntityReference(id, ctx.Rule.TableType)
		tables := ctx.TablesOfType(entityType, lattice)
		if len(tables) > 0 {
			entity = tables[0]
		} else {
			entity = id
		}
	}
	return reference.Resolve(tt, entity, lattice, cat)
}

// StructuredRef resolves a single bound entity (a catalog.Field or
// catalog.Table pulled from a bindings map) to its structured-query node
// via the reference resolver. Used by the card expander (C8) to build a
// queryast.TemplateExpr for a metric/filter definition's referenced
// dimensions without flattening them to a string.
func StructuredRef(entity any, lattice *xtype.Lattice, cat catalog.Catalog) (queryast.Node, error) {
	resolved, err := reference.Resolve(reference.Structured, entity, lattice, cat)
	if err != nil {
		return nil, err
	}
	node, ok := resolved.(queryast.Node)
	if !ok {
		return nil, fmt.Errorf("template: entity %T did not resolve to a structured reference", entity)
	}
	return node, nil
}

// Structured tree-walks node post-order, replacing every
// queryast.DimensionRef with the structured reference of bindings[id]
// (spec §4.6). All other node shapes pass through unchanged.
func Structured(node queryast.Node, bindings Bindings, lattice *xtype.Lattice, cat catalog.Catalog) (queryast.Node, error) {
	if node == nil {
		return nil, nil
	}
	switch n := node.(type) {
	case queryast.DimensionRef:
		entity, ok := bindings[n.Identifier]
		if !ok {
			return n, nil
		}
		resolved, err := reference.Resolve(reference.Structured, entity, lattice, cat)
		if err != nil {
			return nil, err
		}
		asNode, ok := resolved.(queryast.Node)
		if !ok {
			return nil, fmt.Errorf("template: binding for %q resolved to a non-node value %T", n.Identifier, resolved)
		}
		return asNode, nil
	case queryast.And:
		clauses := make([]queryast.Node, len(n.Clauses))
		for i, c := range n.Clauses {
			walked, err := Structured(c, bindings, lattice, cat)
			if err != nil {
				return nil, err
			}
			clauses[i] = walked
		}
		return queryast.And{Clauses: clauses}, nil
	case queryast.DatetimeRef:
		inner, err := Structured(n.Inner, bindings, lattice, cat)
		if err != nil {
			return nil, err
		}
		return queryast.DatetimeRef{Inner: inner, Unit: n.Unit}, nil
	default:
		return n, nil
	}
}

// StructuredQuery walks every subtree of q (filter, breakout, aggregation,
// order-by targets), returning a new StructuredQuery with every
// DimensionRef resolved.
func StructuredQuery(q queryast.StructuredQuery, bindings Bindings, lattice *xtype.Lattice, cat catalog.Catalog) (queryast.StructuredQuery, error) {
	out := q
	out.Breakout = nil
	out.Aggregation = nil
	out.OrderBy = nil

	filter, err := Structured(q.Filter, bindings, lattice, cat)
	if err != nil {
		return queryast.StructuredQuery{}, err
	}
	out.Filter = filter

	for _, b := range q.Breakout {
		walked, err := Structured(b, bindings, lattice, cat)
		if err != nil {
			return queryast.StructuredQuery{}, err
		}
		out.Breakout = append(out.Breakout, walked)
	}
	for _, a := range q.Aggregation {
		walked, err := Structured(a, bindings, lattice, cat)
		if err != nil {
			return queryast.StructuredQuery{}, err
		}
		out.Aggregation = append(out.Aggregation, walked)
	}
	for _, ob := range q.OrderBy {
		target, err := Structured(ob.Target, bindings, lattice, cat)
		if err != nil {
			return queryast.StructuredQuery{}, err
		}
		out.OrderBy = append(out.OrderBy, queryast.OrderClause{Direction: ob.Direction, Target: target})
	}
	return out, nil
}
