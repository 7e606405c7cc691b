package reference

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/xray-engine/pkg/catalog"
	"github.com/ekaya-inc/xray-engine/pkg/queryast"
	"github.com/ekaya-inc/xray-engine/pkg/xtype"
)

func idPtr(id uuid.UUID) *uuid.UUID { return &id }

func TestResolve_PlainField(t *testing.T) {
	lattice := xtype.DefaultLattice()
	f := catalog.Field{ID: uuid.New(), DisplayName: "Quantity", Name: "qty", BaseType: xtype.Integer}

	structured, err := Resolve(Structured, f, lattice, nil)
	require.NoError(t, err)
	assert.Equal(t, queryast.FieldIDRef{FieldID: f.ID}, structured)

	text, err := Resolve(Text, f, lattice, nil)
	require.NoError(t, err)
	assert.Equal(t, "Quantity", text)
}

func TestResolve_FKLinkedField_S3(t *testing.T) {
	lattice := xtype.DefaultLattice()
	customerID := uuid.New()
	nameFieldID := uuid.New()
	customerIDFieldID := uuid.New()

	nameField := catalog.Field{
		ID: nameFieldID, TableID: customerID, DisplayName: "Name", Name: "name",
		BaseType: xtype.Text, Link: idPtr(customerIDFieldID),
	}

	structured, err := Resolve(Structured, nameField, lattice, nil)
	require.NoError(t, err)
	assert.Equal(t, queryast.FKRef{Via: customerIDFieldID, FieldID: nameFieldID}, structured)
}

func TestResolve_OwnFKField(t *testing.T) {
	lattice := xtype.DefaultLattice()
	fkFieldID := uuid.New()
	targetFieldID := uuid.New()

	f := catalog.Field{ID: fkFieldID, Name: "customer_id", BaseType: xtype.Integer, FKTargetFieldID: idPtr(targetFieldID)}

	structured, err := Resolve(Structured, f, lattice, nil)
	require.NoError(t, err)
	assert.Equal(t, queryast.FKRef{Via: fkFieldID, FieldID: targetFieldID}, structured)
}

func TestResolve_TemporalField_S4(t *testing.T) {
	lattice := xtype.DefaultLattice()
	f := catalog.Field{ID: uuid.New(), Name: "created_at", BaseType: xtype.DateTime}

	structured, err := Resolve(Structured, f, lattice, nil)
	require.NoError(t, err)

	wrapped, ok := structured.(queryast.DatetimeRef)
	require.True(t, ok, "temporal fields wrap in a datetime-field form")
	assert.Equal(t, "day", wrapped.Unit)
	assert.Equal(t, queryast.FieldIDRef{FieldID: f.ID}, wrapped.Inner)
}

type fakeTables struct {
	tables map[uuid.UUID]catalog.Table
}

func (f fakeTables) FieldsOf(uuid.UUID) ([]catalog.Field, error)          { return nil, nil }
func (f fakeTables) LinkedTables(uuid.UUID) ([]catalog.Table, error)      { return nil, nil }
func (f fakeTables) LinkOnly(catalog.Table, *xtype.Lattice) (bool, error) { return false, nil }
func (f fakeTables) Field(uuid.UUID) (catalog.Field, error)               { return catalog.Field{}, nil }
func (f fakeTables) Table(id uuid.UUID) (catalog.Table, error)            { return f.tables[id], nil }

func TestResolve_NativeField(t *testing.T) {
	lattice := xtype.DefaultLattice()
	tableID := uuid.New()
	tables := fakeTables{tables: map[uuid.UUID]catalog.Table{tableID: {ID: tableID, Name: "orders"}}}
	f := catalog.Field{ID: uuid.New(), TableID: tableID, Name: "total"}

	native, err := Resolve(Native, f, lattice, tables)
	require.NoError(t, err)
	assert.Equal(t, "orders.total", native)
}

func TestResolve_UnknownPassesThrough(t *testing.T) {
	lattice := xtype.DefaultLattice()
	resolved, err := Resolve(Structured, "raw-literal", lattice, nil)
	require.NoError(t, err)
	assert.Equal(t, "raw-literal", resolved)
}
