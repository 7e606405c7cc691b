// Package xray is the public entry point for the dashboard rule engine
// (spec C9): it picks the best-matching rule for a root table, drives
// dimension/metric/filter binding, expands every card, merges surviving
// instantiations across cards, and hands the result to a dashboard
// renderer collaborator.
//
// Grounded on a SchemaService orchestration shape
// (a single entry point coordinating several narrow collaborators) and on
// pkg/logging for the zap wiring.
package xray

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/xray-engine/pkg/apperrors"
	"github.com/ekaya-inc/xray-engine/pkg/binder"
	"github.com/ekaya-inc/xray-engine/pkg/cards"
	"github.com/ekaya-inc/xray-engine/pkg/catalog"
	"github.com/ekaya-inc/xray-engine/pkg/overload"
	"github.com/ekaya-inc/xray-engine/pkg/reference"
	"github.com/ekaya-inc/xray-engine/pkg/rules"
	"github.com/ekaya-inc/xray-engine/pkg/template"
	"github.com/ekaya-inc/xray-engine/pkg/xtype"
)

// Permissions and AccessPolicy are re-exported from pkg/cards, which is
// the component that actually consults them (spec §4.7 step 6): callers
// of this package's public API never need to import pkg/cards directly.
type Permissions = cards.Permissions
type AccessPolicy = cards.AccessPolicy

// DashboardMeta is the title/description handed to the renderer alongside
// the surviving card instances.
type DashboardMeta struct {
	Title       string
	Description string
}

// DashboardID is the renderer-assigned handle for a created dashboard.
type DashboardID string

// DashboardRenderer is the rendering collaborator (spec §6): an external
// boundary whose internals are out of scope for this repository.
type DashboardRenderer interface {
	CreateDashboard(meta DashboardMeta, instances []cards.Instance) (DashboardID, error)
}

// GADimensionChecker is re-exported from pkg/binder to spell out the
// dependency this package's callers must supply; rules.Loader satisfies it.
type GADimensionChecker = binder.GADimensionChecker

// Generate runs the full pipeline for rootTable (spec §4.9): pick the
// best rule, bind dimensions/metrics/filters, expand every card, merge
// identifiers across cards by score, and hand the survivors to renderer.
//
// Returns apperrors.ErrNoApplicableRule if no loaded rule's table_type is
// an ancestor of rootTable's entity_type, or apperrors.ErrNoCardsSurvived
// if every card yielded zero instantiations or was entirely denied. Any
// other error is a collaborator failure (catalog, renderer) propagated
// unchanged.
func Generate(
	rootTable catalog.Table,
	loadedRules []rules.Rule,
	lattice *xtype.Lattice,
	cat catalog.Catalog,
	ga GADimensionChecker,
	policy AccessPolicy,
	perms Permissions,
	renderer DashboardRenderer,
	log *zap.Logger,
) (DashboardID, error) {
	rule, err := bestRule(loadedRules, rootTable.EntityType, lattice)
	if err != nil {
		return "", err
	}
	log.Info("rule chosen", zap.String("rule", rule.Name), zap.String("root_table", rootTable.Name))

	ctx, err := buildContext(rootTable, rule, lattice, cat)
	if err != nil {
		return "", err
	}

	if err := binder.Bind(ctx, lattice, cat, ga); err != nil {
		return "", err
	}
	log.Info("dimensions bound",
		zap.Int("dimension_count", len(ctx.Dimensions)),
		zap.Int("table_count", len(ctx.Tables)),
	)

	ctx.Metrics = overload.Resolve(rule.Metrics, ctx.Dimensions)
	ctx.Filters = overload.Resolve(rule.Filters, ctx.Dimensions)
	log.Info("metrics and filters resolved",
		zap.Int("metric_count", len(ctx.Metrics)),
		zap.Int("filter_count", len(ctx.Filters)),
	)

	title, err := template.String(rule.Title, template.Bindings{}, *ctx, reference.Text, lattice, cat)
	if err != nil {
		return "", err
	}
	description, err := template.String(rule.Description, template.Bindings{}, *ctx, reference.Text, lattice, cat)
	if err != nil {
		return "", err
	}

	groups := make(map[string][]cards.Instance, len(rule.CardOrder))
	for _, cardID := range rule.CardOrder {
		instances, err := cards.Expand(*ctx, cardID, rule.Cards[cardID], lattice, cat, policy, perms)
		if err != nil {
			return "", err
		}
		if len(instances) == 0 {
			log.Warn("card produced no surviving instantiations", zap.String("card", cardID))
			continue
		}
		groups[cardID] = mergeCardGroup(groups[cardID], instances)
	}

	survivors := concatGroups(groups, rule.CardOrder)
	if len(survivors) == 0 {
		return "", apperrors.ErrNoCardsSurvived
	}

	id, err := renderer.CreateDashboard(DashboardMeta{Title: title, Description: description}, survivors)
	if err != nil {
		return "", fmt.Errorf("xray: rendering dashboard: %w", err)
	}
	return id, nil
}

// bestRule implements spec §4.8: among rules whose table_type is an
// ancestor (not necessarily proper) of entityType, pick the one with the
// longest ancestor chain (most specific); ties broken by first-seen order
// in loadedRules.
func bestRule(loadedRules []rules.Rule, entityType xtype.Type, lattice *xtype.Lattice) (*rules.Rule, error) {
	var best *rules.Rule
	bestSpecificity := -1
	for i := range loadedRules {
		r := &loadedRules[i]
		if !lattice.IsA(entityType, r.TableType) {
			continue
		}
		specificity := lattice.AncestorCount(r.TableType)
		if specificity > bestSpecificity {
			best = r
			bestSpecificity = specificity
		}
	}
	if best == nil {
		return nil, apperrors.ErrNoApplicableRule
	}
	return best, nil
}

// buildContext implements spec §4.9 step 2.
func buildContext(rootTable catalog.Table, rule *rules.Rule, lattice *xtype.Lattice, cat catalog.Catalog) (*rules.Context, error) {
	linked, err := cat.LinkedTables(rootTable.ID)
	if err != nil {
		return nil, fmt.Errorf("xray: listing linked tables for %s: %w", rootTable.ID, err)
	}
	return &rules.Context{
		RootTable: rootTable,
		Rule:      rule,
		Tables:    append([]catalog.Table{rootTable}, linked...),
		Database:  rootTable.DatabaseID,
	}, nil
}

// mergeCardGroup implements spec §4.9 step 6's pairwise reduction ("merge
// identifiers across cards using max-by-score: when two cards share an
// identifier, keep the group whose top instantiation has the higher
// score") as the binary combiner spec §9's design notes call for. Scored
// by the maximum over the *entire* existing group, not just its first
// element, since cards.Expand does not guarantee its output arrives
// pre-sorted by score. Within a single Generate run rule.CardOrder never
// repeats an identifier, so this combiner only ever sees an empty
// existing slice in practice; it is still written as a real reduction so
// a caller merging card groups across more than one rule match gets
// correct behavior rather than silent concatenation.
func mergeCardGroup(existing, incoming []cards.Instance) []cards.Instance {
	if len(existing) == 0 {
		return incoming
	}
	if len(incoming) == 0 {
		return existing
	}
	if topScore(incoming) > topScore(existing) {
		return incoming
	}
	return existing
}

func topScore(instances []cards.Instance) float64 {
	max := instances[0].Score
	for _, inst := range instances[1:] {
		if inst.Score > max {
			max = inst.Score
		}
	}
	return max
}

// concatGroups assembles the final survivor list in rule.CardOrder, the
// rule's own deterministic declaration order (spec invariant 8).
func concatGroups(groups map[string][]cards.Instance, order []string) []cards.Instance {
	var out []cards.Instance
	for _, id := range order {
		out = append(out, groups[id]...)
	}
	return out
}
