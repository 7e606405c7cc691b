package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/xray-engine/pkg/xtype"
)

func idPtr(id uuid.UUID) *uuid.UUID { return &id }

func TestField_IsNumericKey(t *testing.T) {
	lattice := xtype.DefaultLattice()

	cases := []struct {
		name  string
		field Field
		want  bool
	}{
		{"pk integer", Field{BaseType: xtype.Integer, SpecialType: xtype.PK, Name: "order_id"}, true},
		{"fk integer", Field{BaseType: xtype.Integer, SpecialType: xtype.FK, Name: "customer_ref"}, true},
		{"named id, no special type", Field{BaseType: xtype.Integer, Name: "ID"}, true},
		{"plain numeric attribute", Field{BaseType: xtype.Integer, Name: "quantity"}, false},
		{"text pk is not a numeric key", Field{BaseType: xtype.Text, SpecialType: xtype.PK, Name: "sku"}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.field.IsNumericKey(lattice))
		})
	}
}

func TestInMemory_FieldsOf(t *testing.T) {
	tableID := uuid.New()
	f1 := Field{ID: uuid.New(), TableID: tableID, Name: "a", BaseType: xtype.Integer}
	f2 := Field{ID: uuid.New(), TableID: tableID, Name: "b", BaseType: xtype.Integer}

	cat := NewBuilder().
		AddTable(Table{ID: tableID, Name: "orders", EntityType: xtype.Type("Generic")}).
		AddField(f1).
		AddField(f2).
		Build()

	fields, err := cat.FieldsOf(tableID)
	require.NoError(t, err)
	assert.Equal(t, []Field{f1, f2}, fields)

	_, err = cat.FieldsOf(uuid.New())
	assert.Error(t, err)
}

func TestInMemory_LinkedTables(t *testing.T) {
	ordersID, customersID := uuid.New(), uuid.New()
	customerPK := uuid.New()
	customerFK := uuid.New()

	cat := NewBuilder().
		AddTable(Table{ID: ordersID, Name: "orders"}).
		AddTable(Table{ID: customersID, Name: "customers"}).
		AddField(Field{ID: customerPK, TableID: customersID, Name: "id", SpecialType: xtype.PK, BaseType: xtype.Integer}).
		AddField(Field{ID: customerFK, TableID: ordersID, Name: "customer_id", BaseType: xtype.Integer, SpecialType: xtype.FK, FKTargetFieldID: idPtr(customerPK)}).
		Build()

	linked, err := cat.LinkedTables(ordersID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, customersID, linked[0].ID)
	require.NotNil(t, linked[0].Link)
	assert.Equal(t, customerFK, *linked[0].Link)
}

func TestInMemory_LinkedTables_MultipleFKsToSameTable(t *testing.T) {
	ordersID, usersID := uuid.New(), uuid.New()
	userPK := uuid.New()
	buyerFK, sellerFK := uuid.New(), uuid.New()

	cat := NewBuilder().
		AddTable(Table{ID: ordersID, Name: "orders"}).
		AddTable(Table{ID: usersID, Name: "users"}).
		AddField(Field{ID: userPK, TableID: usersID, Name: "id", SpecialType: xtype.PK, BaseType: xtype.Integer}).
		AddField(Field{ID: buyerFK, TableID: ordersID, Name: "buyer_id", BaseType: xtype.Integer, FKTargetFieldID: idPtr(userPK)}).
		AddField(Field{ID: sellerFK, TableID: ordersID, Name: "seller_id", BaseType: xtype.Integer, FKTargetFieldID: idPtr(userPK)}).
		Build()

	linked, err := cat.LinkedTables(ordersID)
	require.NoError(t, err)
	assert.Len(t, linked, 2, "two distinct FK-annotated entries even though both point at users")
}

func TestInMemory_LinkOnly(t *testing.T) {
	lattice := xtype.DefaultLattice()

	junctionID := uuid.New()
	cat := NewBuilder().
		AddTable(Table{ID: junctionID, Name: "order_items"}).
		AddField(Field{ID: uuid.New(), TableID: junctionID, Name: "order_id", SpecialType: xtype.FK, BaseType: xtype.Integer}).
		AddField(Field{ID: uuid.New(), TableID: junctionID, Name: "product_id", SpecialType: xtype.FK, BaseType: xtype.Integer}).
		Build()

	ok, err := cat.LinkOnly(Table{ID: junctionID}, lattice)
	require.NoError(t, err)
	assert.True(t, ok, "every field is a PK or FK")
}

func TestInMemory_LinkOnly_NullSpecialTypeBreaksIt(t *testing.T) {
	lattice := xtype.DefaultLattice()
	tableID := uuid.New()

	cat := NewBuilder().
		AddTable(Table{ID: tableID, Name: "orders"}).
		AddField(Field{ID: uuid.New(), TableID: tableID, Name: "id", SpecialType: xtype.PK, BaseType: xtype.Integer}).
		AddField(Field{ID: uuid.New(), TableID: tableID, Name: "total", BaseType: xtype.Number}). // no special type
		Build()

	ok, err := cat.LinkOnly(Table{ID: tableID}, lattice)
	require.NoError(t, err)
	assert.False(t, ok, "a null special type does not count as PK/FK")
}

func TestInMemory_LinkOnly_EmptyTableIsVacuouslyTrue(t *testing.T) {
	lattice := xtype.DefaultLattice()
	tableID := uuid.New()

	cat := NewBuilder().AddTable(Table{ID: tableID, Name: "empty"}).Build()

	ok, err := cat.LinkOnly(Table{ID: tableID}, lattice)
	require.NoError(t, err)
	assert.True(t, ok, "a table with no fields at all is treated as link-only (S1/open question)")
}
