package rules

import (
	"github.com/google/uuid"

	"github.com/ekaya-inc/xray-engine/pkg/catalog"
	"github.com/ekaya-inc/xray-engine/pkg/xtype"
)

// Context is the per-run binding environment (spec §3 Context): the root
// table, the chosen rule, the tables in scope (root plus linked), the
// database identity, and — once bound — the resolved dimensions, metrics,
// and filters. Constructed by the orchestrator (C9) and treated as a
// read-only value by every component downstream of it (C5-C8).
type Context struct {
	RootTable catalog.Table
	Rule      *Rule
	Tables    []catalog.Table // root first, then linked tables
	Database  uuid.UUID

	Dimensions map[string]BoundDimension
	Metrics    map[string]Definition
	Filters    map[string]Definition
}

// TablesOfType returns the tables in context whose entity type is-a t.
// Used both by the dimension binder's links_to constraint (spec §4.4) and
// by the card expander's entity-reference candidate enumeration
// (spec §4.7 step 5).
func (c Context) TablesOfType(t xtype.Type, lattice *xtype.Lattice) []catalog.Table {
	var out []catalog.Table
	for _, table := range c.Tables {
		if lattice.IsA(table.EntityType, t) {
			out = append(out, table)
		}
	}
	return out
}

// TableByID returns the context table with the given id, if present.
func (c Context) TableByID(id uuid.UUID) (catalog.Table, bool) {
	for _, t := range c.Tables {
		if t.ID == id {
			return t, true
		}
	}
	return catalog.Table{}, false
}
