// Package catalog is the read-only view over a database schema that the
// rest of the rule engine binds against (spec C2): listing the fields of a
// table and following the foreign-key graph outward from a root table. It
// never mutates a schema and never executes a query; it is a pure lookup
// surface, consistent with the orchestrator's read-only snapshot model
// (spec §5).
package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ekaya-inc/xray-engine/pkg/apperrors"
	"github.com/ekaya-inc/xray-engine/pkg/xtype"
)

// Field is a single column of a table.
type Field struct {
	ID              uuid.UUID
	TableID         uuid.UUID
	DisplayName     string
	Name            string // internal name, e.g. "customer_id"
	BaseType        xtype.Type
	SpecialType     xtype.Type // absent is the zero value ""
	FKTargetFieldID *uuid.UUID

	// Link is the FK field id on the root table through which this field's
	// owning table was reached. Sourced fields from the catalog never set
	// this; the dimension binder (C5) copies it from the field's table
	// annotation onto each matching candidate (spec §3 Field invariant).
	Link *uuid.UUID
}

// IsNumericKey reports the invariant from spec §3: a field is a numeric
// key — and therefore ineligible as a dimension candidate regardless of
// rule constraints — iff its base type is-a Number AND its special type
// is-a PK or FK, or its internal name is "id" (case-insensitively).
func (f Field) IsNumericKey(lattice *xtype.Lattice) bool {
	if !lattice.IsA(f.BaseType, xtype.Number) {
		return false
	}
	if lattice.IsA(f.SpecialType, xtype.PK) || lattice.IsA(f.SpecialType, xtype.FK) {
		return true
	}
	return strings.EqualFold(f.Name, "id")
}

// Table is a single table in the schema.
type Table struct {
	ID           uuid.UUID
	DisplayName  string
	Name         string // internal name
	DatabaseID   uuid.UUID
	EntityType   xtype.Type

	// Link is set on non-root tables reached via LinkedTables: the id of
	// the foreign-key field on the root table through which this table was
	// reached. Nil for the root table itself.
	Link *uuid.UUID
}

// Catalog is the minimum read surface the rule engine needs (spec §6):
// listing a table's fields, following FK edges outward from a root table,
// and resolving ids back to tables/fields for reference construction.
type Catalog interface {
	FieldsOf(tableID uuid.UUID) ([]Field, error)
	LinkedTables(rootID uuid.UUID) ([]Table, error)
	LinkOnly(table Table, lattice *xtype.Lattice) (bool, error)
	Table(id uuid.UUID) (Table, error)
	Field(id uuid.UUID) (Field, error)
}

// InMemory is a concrete, read-only Catalog implementation backed by plain
// maps held in memory (spec C12): no I/O, safe for concurrent reads once
// built, since nothing mutates it after construction. It is the catalog
// adapter the demo binary and the test suite use in place of a live
// database connection.
type InMemory struct {
	tables    map[uuid.UUID]Table
	fields    map[uuid.UUID]Field
	byTable   map[uuid.UUID][]uuid.UUID // tableID -> field IDs, insertion order
}

// FieldsOf returns all fields of a table, in the order they were added.
func (c *InMemory) FieldsOf(tableID uuid.UUID) ([]Field, error) {
	ids, ok := c.byTable[tableID]
	if !ok {
		if _, exists := c.tables[tableID]; !exists {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrTableNotFound, tableID)
		}
		return nil, nil
	}
	fields := make([]Field, 0, len(ids))
	for _, id := range ids {
		fields = append(fields, c.fields[id])
	}
	return fields, nil
}

// LinkedTables returns, for each field of root with a non-nil
// FKTargetFieldID, the target field's owning table annotated with
// Link = that field's id. Multiple foreign keys to the same table yield
// multiple distinct annotated entries, since each is reached through a
// different link field (spec C2).
func (c *InMemory) LinkedTables(rootID uuid.UUID) ([]Table, error) {
	fields, err := c.FieldsOf(rootID)
	if err != nil {
		return nil, err
	}

	var linked []Table
	for _, f := range fields {
		if f.FKTargetFieldID == nil {
			continue
		}
		targetField, ok := c.fields[*f.FKTargetFieldID]
		if !ok {
			return nil, fmt.Errorf("%w: fk target field %s", apperrors.ErrFieldNotFound, *f.FKTargetFieldID)
		}
		targetTable, ok := c.tables[targetField.TableID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrTableNotFound, targetField.TableID)
		}
		linkField := f.ID
		targetTable.Link = &linkField
		linked = append(linked, targetTable)
	}
	return linked, nil
}

// LinkOnly reports whether every field of table has a special type that
// is-a PK or FK. A table with zero fields returns true — the "no rows
// found" case is treated as vacuously link-only, preserving the source
// system's documented-but-ambiguous behavior (spec §9 Open Questions; see
// DESIGN.md). A null special type never satisfies the predicate, which
// falls out of Lattice.IsA("", ...) returning false without special-casing.
func (c *InMemory) LinkOnly(table Table, lattice *xtype.Lattice) (bool, error) {
	fields, err := c.FieldsOf(table.ID)
	if err != nil {
		return false, err
	}
	for _, f := range fields {
		if !lattice.IsA(f.SpecialType, xtype.PK) && !lattice.IsA(f.SpecialType, xtype.FK) {
			return false, nil
		}
	}
	return true, nil
}

// Table resolves a table id.
func (c *InMemory) Table(id uuid.UUID) (Table, error) {
	t, ok := c.tables[id]
	if !ok {
		return Table{}, fmt.Errorf("%w: %s", apperrors.ErrTableNotFound, id)
	}
	return t, nil
}

// Field resolves a field id.
func (c *InMemory) Field(id uuid.UUID) (Field, error) {
	f, ok := c.fields[id]
	if !ok {
		return Field{}, fmt.Errorf("%w: %s", apperrors.ErrFieldNotFound, id)
	}
	return f, nil
}
