package cards

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/xray-engine/pkg/catalog"
	"github.com/ekaya-inc/xray-engine/pkg/queryast"
	"github.com/ekaya-inc/xray-engine/pkg/rules"
	"github.com/ekaya-inc/xray-engine/pkg/xtype"
)

type allowAll struct{}

func (allowAll) HasPermission(queryast.Query, Permissions) bool { return true }

type denyAll struct{}

func (denyAll) HasPermission(queryast.Query, Permissions) bool { return false }

func baseContext() (rules.Context, catalog.Field) {
	root := catalog.Table{ID: uuid.New(), EntityType: xtype.Type("Order")}
	qty := catalog.Field{ID: uuid.New(), TableID: root.ID, Name: "qty", DisplayName: "Quantity", BaseType: xtype.Integer}
	rule := &rules.Rule{
		TableType: xtype.Type("Order"),
		MaxScore:  100,
		Dimensions: map[string][]rules.Dimension{
			"D1": {{FieldType: []xtype.Type{xtype.Number}, Score: 80}},
		},
	}
	ctx := rules.Context{
		RootTable: root,
		Rule:      rule,
		Tables:    []catalog.Table{root},
		Dimensions: map[string]rules.BoundDimension{
			"D1": {Dimension: rule.Dimensions["D1"][0], Matches: []catalog.Field{qty}},
		},
		Metrics: map[string]rules.Definition{},
		Filters: map[string]rules.Definition{},
	}
	return ctx, qty
}

func TestExpand_StructuredCard_OneInstancePerCandidate(t *testing.T) {
	lattice := xtype.DefaultLattice()
	ctx, qty := baseContext()
	card := rules.CardSpec{Dimensions: []string{"D1"}, Score: 80, Title: "By [[D1]]"}

	instances, err := Expand(ctx, "overview", card, lattice, catalog.NewBuilder().Build(), allowAll{}, Permissions{})
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, "By "+qty.DisplayName, instances[0].Title)
	assert.Equal(t, 64.0, instances[0].Score, "mean 80 scaled by card score 80 / max score 100")
}

func TestExpand_EmptyCandidateSetDropsCard(t *testing.T) {
	lattice := xtype.DefaultLattice()
	ctx, _ := baseContext()
	ctx.Dimensions["D1"] = rules.BoundDimension{Dimension: ctx.Rule.Dimensions["D1"][0]} // no matches

	card := rules.CardSpec{Dimensions: []string{"D1"}, Score: 80}
	instances, err := Expand(ctx, "overview", card, lattice, catalog.NewBuilder().Build(), allowAll{}, Permissions{})
	require.NoError(t, err)
	assert.Empty(t, instances)
}

func TestExpand_AccessPolicyDeniesAll(t *testing.T) {
	lattice := xtype.DefaultLattice()
	ctx, _ := baseContext()
	card := rules.CardSpec{Dimensions: []string{"D1"}, Score: 80}

	instances, err := Expand(ctx, "overview", card, lattice, catalog.NewBuilder().Build(), denyAll{}, Permissions{})
	require.NoError(t, err)
	assert.Empty(t, instances)
}

func TestExpand_NativeCardKeepsDeclaredScore(t *testing.T) {
	lattice := xtype.DefaultLattice()
	ctx, _ := baseContext()
	card := rules.CardSpec{Dimensions: []string{"D1"}, Query: "select [[D1]] from t", Score: 42}

	cat := catalog.NewBuilder().AddTable(ctx.RootTable).Build()
	instances, err := Expand(ctx, "raw", card, lattice, cat, allowAll{}, Permissions{})
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, 42.0, instances[0].Score)
	require.NotNil(t, instances[0].Query.Native)
}

func TestExpand_CartesianProductAcrossTwoDimensions(t *testing.T) {
	lattice := xtype.DefaultLattice()
	ctx, qty := baseContext()
	other := catalog.Field{ID: uuid.New(), TableID: ctx.RootTable.ID, Name: "total", BaseType: xtype.Integer}
	ctx.Rule.Dimensions["D2"] = []rules.Dimension{{FieldType: []xtype.Type{xtype.Number}, Score: 50}}
	ctx.Dimensions["D2"] = rules.BoundDimension{Dimension: ctx.Rule.Dimensions["D2"][0], Matches: []catalog.Field{qty, other}}

	card := rules.CardSpec{Dimensions: []string{"D1", "D2"}, Score: 80}
	instances, err := Expand(ctx, "grid", card, lattice, catalog.NewBuilder().Build(), allowAll{}, Permissions{})
	require.NoError(t, err)
	assert.Len(t, instances, 2, "one D1 candidate x two D2 candidates")
}
