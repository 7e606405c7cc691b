// Package binder implements the dimension binder (spec C5): for every
// dimension identifier declared by the chosen rule, it resolves the set of
// concrete catalog fields that satisfy the dimension's constraints and
// writes the result back into the run context.
//
// Grounded on a column-classification service's column_filter.go/deterministic_relationship_
// service.go predicate-and-score idiom: a small set of composable
// predicates ANDed together, then a deterministic reduction over candidate
// sets when more than one source produces them.
package binder

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/ekaya-inc/xray-engine/pkg/catalog"
	"github.com/ekaya-inc/xray-engine/pkg/rules"
	"github.com/ekaya-inc/xray-engine/pkg/xtype"
)

// GADimensionChecker reports whether a field-spec literal names a "GA
// dimension" (spec §6), matched by exact internal-name equality rather
// than type ancestry. rules.Loader implements this.
type GADimensionChecker interface {
	IsGADimension(s string) bool
}

// Bind computes bound dimensions for every identifier in ctx.Rule's
// dimension list and stores them on ctx.Dimensions (spec §4.4). It reads
// ctx.RootTable, ctx.Tables, and the catalog for field listings.
func Bind(ctx *rules.Context, lattice *xtype.Lattice, cat catalog.Catalog, ga GADimensionChecker) error {
	if ctx.Dimensions == nil {
		ctx.Dimensions = make(map[string]rules.BoundDimension, len(ctx.Rule.DimensionOrder))
	}

	for _, id := range ctx.Rule.DimensionOrder {
		defs := ctx.Rule.Dimensions[id]
		var bound []rules.BoundDimension
		for _, def := range defs {
			matches, err := candidates(*ctx, def, lattice, cat, ga)
			if err != nil {
				return fmt.Errorf("binder: dimension %q: %w", id, err)
			}
			bound = append(bound, rules.BoundDimension{Dimension: def, Matches: matches})
		}
		ctx.Dimensions[id] = mergeOverloads(bound)
	}
	return nil
}

// mergeOverloads reduces a dimension identifier's independently-bound
// overloads to the single winner: non-empty matches beat empty ones; among
// definitions tied on that, the higher score wins; first-seen breaks a
// remaining tie. Mirrors pkg/overload's applicable/highest-score shape,
// keyed on match emptiness rather than dimension-reference applicability,
// since there are no dimension refs to check here.
func mergeOverloads(bound []rules.BoundDimension) rules.BoundDimension {
	best := bound[0]
	for _, cand := range bound[1:] {
		if betterOverload(cand, best) {
			best = cand
		}
	}
	return best
}

func betterOverload(cand, best rules.BoundDimension) bool {
	candNonEmpty, bestNonEmpty := len(cand.Matches) > 0, len(best.Matches) > 0
	if candNonEmpty != bestNonEmpty {
		return candNonEmpty
	}
	return cand.Score > best.Score
}

// candidates computes the field-candidates for a single dimension
// definition (spec §4.4, steps 1-3).
func candidates(ctx rules.Context, def rules.Dimension, lattice *xtype.Lattice, cat catalog.Catalog, ga GADimensionChecker) ([]catalog.Field, error) {
	if def.LinksTo != "" {
		withoutLink := def
		withoutLink.LinksTo = ""
		base, err := candidates(ctx, withoutLink, lattice, cat, ga)
		if err != nil {
			return nil, err
		}
		targets := ctx.TablesOfType(def.LinksTo, lattice)
		var out []catalog.Field
		for _, f := range base {
			if f.Link != nil && linksToAny(*f.Link, targets) {
				out = append(out, f)
			}
		}
		return out, nil
	}

	if !def.IsRootScoped() {
		tableType, fieldSpec := def.TableType(), def.FieldSpec()
		var out []catalog.Field
		for _, table := range ctx.Tables {
			if !lattice.IsA(table.EntityType, tableType) {
				continue
			}
			fields, err := cat.FieldsOf(table.ID)
			if err != nil {
				return nil, fmt.Errorf("fetching fields of table %s: %w", table.ID, err)
			}
			for _, f := range fields {
				if !matchesPredicatePack(f, fieldSpec, def.Named, lattice, ga) {
					continue
				}
				if table.Link != nil {
					link := *table.Link
					f.Link = &link
				}
				out = append(out, f)
			}
		}
		return out, nil
	}

	fields, err := cat.FieldsOf(ctx.RootTable.ID)
	if err != nil {
		return nil, fmt.Errorf("fetching fields of root table %s: %w", ctx.RootTable.ID, err)
	}
	var out []catalog.Field
	for _, f := range fields {
		if matchesPredicatePack(f, def.FieldSpec(), def.Named, lattice, ga) {
			out = append(out, f)
		}
	}
	return out, nil
}

// linksToAny reports whether link is the id of the field through which one
// of targets was reached from the root table.
func linksToAny(link uuid.UUID, targets []catalog.Table) bool {
	for _, t := range targets {
		if t.Link != nil && *t.Link == link {
			return true
		}
	}
	return false
}

// matchesPredicatePack ANDs the fieldspec match, the optional named match,
// and the not-numeric-key exclusion (spec §4.4 "Predicate pack").
func matchesPredicatePack(f catalog.Field, fieldSpec xtype.Type, named *regexp.Regexp, lattice *xtype.Lattice, ga GADimensionChecker) bool {
	if f.IsNumericKey(lattice) {
		return false
	}
	if !matchesFieldSpec(f, fieldSpec, lattice, ga) {
		return false
	}
	if named != nil && !named.MatchString(f.Name) {
		return false
	}
	return true
}

func matchesFieldSpec(f catalog.Field, fieldSpec xtype.Type, lattice *xtype.Lattice, ga GADimensionChecker) bool {
	if ga.IsGADimension(string(fieldSpec)) {
		return f.Name == string(fieldSpec)
	}
	return lattice.IsA(f.SpecialType, fieldSpec) || lattice.IsA(f.BaseType, fieldSpec)
}
