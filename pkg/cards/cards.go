// Package cards implements the card expander (spec C8): given a bound
// context and a card spec, it enumerates every concrete instantiation
// (the Cartesian product of each used dimension's candidate set), builds
// the card's query, consults the access policy, and attaches the
// computed score.
//
// Grounded on a relationship service's relationship_candidate_collector.go (the same
// "enumerate candidates, score, filter by access" shape, there applied to
// FK relationship discovery rather than card instantiation) and on
// pkg/auth's permission-check call pattern for the access-policy hook.
package cards

import (
	"github.com/google/uuid"

	"github.com/ekaya-inc/xray-engine/pkg/catalog"
	"github.com/ekaya-inc/xray-engine/pkg/queryast"
	"github.com/ekaya-inc/xray-engine/pkg/reference"
	"github.com/ekaya-inc/xray-engine/pkg/rules"
	"github.com/ekaya-inc/xray-engine/pkg/template"
	"github.com/ekaya-inc/xray-engine/pkg/xtype"
)

// Permissions is the caller's access-control context, threaded explicitly
// end to end rather than read from ambient/global state (spec §9 design
// note). Its shape is intentionally minimal: the access-policy
// collaborator is an external boundary (spec §6), so this repository only
// needs enough of a value to pass through it.
type Permissions struct {
	UserID uuid.UUID
	Roles  []string
}

// AccessPolicy is the access-control collaborator consulted once per card
// instantiation (spec §4.7 step 6, spec §6).
type AccessPolicy interface {
	HasPermission(query queryast.Query, user Permissions) bool
}

// Instance is one concrete, scored card instantiation.
type Instance struct {
	CardName      string
	Title         string
	Description   string
	Visualization map[string]any
	Query         queryast.Query
	Score         float64
}

// Expand produces every surviving instantiation of card (spec §4.7). A
// used dimension with an empty candidate set yields zero instantiations
// for the whole card, per the documented edge case.
func Expand(
	ctx rules.Context,
	cardID string,
	card rules.CardSpec,
	lattice *xtype.Lattice,
	cat catalog.Catalog,
	policy AccessPolicy,
	perms Permissions,
) ([]Instance, error) {
	score := computeScore(ctx, card)

	used := ctx.Rule.UsedDimensionsOf(card)
	candidateSets := candidateSetsFor(ctx, used, lattice)
	for _, set := range candidateSets {
		if len(set) == 0 {
			return nil, nil
		}
	}

	var instances []Instance
	for _, bindings := range cartesianProduct(used, candidateSets) {
		query, err := buildQuery(ctx, card, bindings, lattice, cat)
		if err != nil {
			return nil, err
		}
		if !policy.HasPermission(query, perms) {
			continue
		}

		title, err := template.String(card.Title, bindings, ctx, reference.Text, lattice, cat)
		if err != nil {
			return nil, err
		}
		description, err := template.String(card.Description, bindings, ctx, reference.Text, lattice, cat)
		if err != nil {
			return nil, err
		}

		instances = append(instances, Instance{
			CardName:      cardID,
			Title:         title,
			Description:   description,
			Visualization: card.Visualization,
			Query:         query,
			Score:         score,
		})
	}
	return instances, nil
}

// computeScore implements spec §4.7 step 3: a native card keeps its
// declared score unchanged; a structured card takes the mean of all
// present scores across its dimensions, metrics, and filters, scaled by
// card.Score/rule.MaxScore.
func computeScore(ctx rules.Context, card rules.CardSpec) float64 {
	if card.IsNative() {
		return float64(card.Score)
	}

	var sum float64
	var count int
	for _, id := range card.Dimensions {
		if bound, ok := ctx.Dimensions[id]; ok {
			sum += float64(bound.Score)
			count++
		}
	}
	for _, id := range card.Metrics {
		if def, ok := ctx.Metrics[id]; ok {
			sum += float64(def.Score)
			count++
		}
	}
	for _, id := range card.Filters {
		if def, ok := ctx.Filters[id]; ok {
			sum += float64(def.Score)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	mean := sum / float64(count)

	ratio := 1.0
	if ctx.Rule.MaxScore > 0 {
		ratio = float64(card.Score) / float64(ctx.Rule.MaxScore)
	}
	return mean * ratio
}

// candidateSetsFor builds, for every used dimension identifier, its
// candidate set of bindable entities: the dimension's resolved matches if
// it names a declared dimension, or the context tables of that type if it
// is an entity reference (spec §4.7 step 5).
func candidateSetsFor(ctx rules.Context, used []string, lattice *xtype.Lattice) map[string][]any {
	sets := make(map[string][]any, len(used))
	for _, id := range used {
		if bound, ok := ctx.Dimensions[id]; ok {
			entities := make([]any, len(bound.Matches))
			for i, f := range bound.Matches {
				entities[i] = f
			}
			sets[id] = entities
			continue
		}
		entityType := template.EntityReference(id, ctx.Rule.TableType)
		tables := ctx.TablesOfType(entityType, lattice)
		entities := make([]any, len(tables))
		for i, t := range tables {
			entities[i] = t
		}
		sets[id] = entities
	}
	return sets
}

// cartesianProduct enumerates every combination of candidateSets across
// the identifiers in used, in deterministic order, as bindings maps.
// Duplicate combinations are not de-duplicated (spec §4.7 edge case:
// callers assume candidate sets contain no duplicates).
func cartesianProduct(used []string, candidateSets map[string][]any) []template.Bindings {
	if len(used) == 0 {
		return []template.Bindings{{}}
	}

	combos := []template.Bindings{{}}
	for _, id := range used {
		set := candidateSets[id]
		next := make([]template.Bindings, 0, len(combos)*len(set))
		for _, combo := range combos {
			for _, entity := range set {
				extended := make(template.Bindings, len(combo)+1)
				for k, v := range combo {
					extended[k] = v
				}
				extended[id] = entity
				next = append(next, extended)
			}
		}
		combos = next
	}
	return combos
}

// buildQuery constructs the query for one concrete combination (spec §4.7
// step 6): native cards render card.Query as a string template; structured
// cards build breakout/filter/aggregation/order-by from the card spec and
// tree-walk them via C7.
func buildQuery(
	ctx rules.Context,
	card rules.CardSpec,
	bindings template.Bindings,
	lattice *xtype.Lattice,
	cat catalog.Catalog,
) (queryast.Query, error) {
	if card.IsNative() {
		rendered, err := template.String(card.Query, bindings, ctx, reference.Native, lattice, cat)
		if err != nil {
			return queryast.Query{}, err
		}
		return queryast.Query{Database: ctx.Database, Native: &queryast.NativeQuery{Query: rendered}}, nil
	}

	breakout := make([]queryast.Node, len(card.Dimensions))
	for i, id := range card.Dimensions {
		breakout[i] = queryast.DimensionRef{Identifier: id}
	}

	aggregation, err := aggregationNodes(card.Metrics, ctx.Metrics, bindings, lattice, cat)
	if err != nil {
		return queryast.Query{}, err
	}
	filterNodes, err := aggregationNodes(card.Filters, ctx.Filters, bindings, lattice, cat)
	if err != nil {
		return queryast.Query{}, err
	}
	var filter queryast.Node
	if len(filterNodes) == 1 {
		filter = filterNodes[0]
	} else if len(filterNodes) > 1 {
		filter = queryast.And{Clauses: filterNodes}
	}

	structured := queryast.StructuredQuery{
		SourceTable: ctx.RootTable.ID,
		Filter:      filter,
		Breakout:    breakout,
		Aggregation: aggregation,
		Limit:       card.Limit,
		OrderBy:     resolveOrderBy(card),
	}
	walked, err := template.StructuredQuery(structured, bindings, lattice, cat)
	if err != nil {
		return queryast.Query{}, err
	}
	return queryast.Query{Database: ctx.Database, Structured: &walked}, nil
}

// aggregationNodes builds one queryast.TemplateExpr per identifier in ids,
// resolved against the chosen overload for each (metrics or filters).
func aggregationNodes(ids []string, defs map[string]rules.Definition, bindings template.Bindings, lattice *xtype.Lattice, cat catalog.Catalog) ([]queryast.Node, error) {
	var out []queryast.Node
	for _, id := range ids {
		def, ok := defs[id]
		if !ok {
			continue
		}
		refs := make([]queryast.Node, 0, len(def.DimensionRefs))
		for _, ref := range def.DimensionRefs {
			entity, ok := bindings[ref]
			if !ok {
				continue
			}
			node, err := template.StructuredRef(entity, lattice, cat)
			if err != nil {
				return nil, err
			}
			refs = append(refs, node)
		}
		out = append(out, queryast.TemplateExpr{Template: def.Template, Refs: refs})
	}
	return out, nil
}

// resolveOrderBy implements spec §4.7 step 1: each order_by entry targets
// either a dimension (if the identifier is among the card's dimensions) or
// an aggregate-field by index into the card's metrics list.
func resolveOrderBy(card rules.CardSpec) []queryast.OrderClause {
	isDimension := make(map[string]bool, len(card.Dimensions))
	for _, id := range card.Dimensions {
		isDimension[id] = true
	}
	metricIndex := make(map[string]int, len(card.Metrics))
	for i, id := range card.Metrics {
		metricIndex[id] = i
	}

	var out []queryast.OrderClause
	for _, ob := range card.OrderBy {
		var target queryast.Node
		if isDimension[ob.Identifier] {
			target = queryast.DimensionRef{Identifier: ob.Identifier}
		} else if i, ok := metricIndex[ob.Identifier]; ok {
			target = queryast.AggregateFieldRef{Index: i}
		} else {
			continue
		}
		out = append(out, queryast.OrderClause{Direction: ob.Direction, Target: target})
	}
	return out
}
