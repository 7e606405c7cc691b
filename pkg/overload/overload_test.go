package overload

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/xray-engine/pkg/catalog"
	"github.com/ekaya-inc/xray-engine/pkg/rules"
)

func withMatch() rules.BoundDimension {
	return rules.BoundDimension{Matches: []catalog.Field{{}}}
}

func TestResolve_SingleApplicable(t *testing.T) {
	defs := map[string][]rules.Definition{
		"Revenue": {
			{Template: "a", Score: 50, DimensionRefs: []string{"D1"}},
			{Template: "b", Score: 90, DimensionRefs: []string{"D2"}},
		},
	}
	dims := map[string]rules.BoundDimension{
		"D1": withMatch(),
		"D2": {}, // empty: "b" is not applicable
	}

	resolved := Resolve(defs, dims)
	assert.Equal(t, "a", resolved["Revenue"].Template)
}

func TestResolve_MultipleApplicable_HighestScoreWins(t *testing.T) {
	defs := map[string][]rules.Definition{
		"Revenue": {
			{Template: "a", Score: 50, DimensionRefs: []string{"D1"}},
			{Template: "b", Score: 90, DimensionRefs: []string{"D1"}},
		},
	}
	dims := map[string]rules.BoundDimension{"D1": withMatch()}

	resolved := Resolve(defs, dims)
	assert.Equal(t, "b", resolved["Revenue"].Template)
}

func TestResolve_NoneApplicable_FallsBackToHighestScore(t *testing.T) {
	defs := map[string][]rules.Definition{
		"Revenue": {
			{Template: "a", Score: 50, DimensionRefs: []string{"D1"}},
			{Template: "b", Score: 90, DimensionRefs: []string{"D2"}},
		},
	}
	dims := map[string]rules.BoundDimension{"D1": {}, "D2": {}}

	resolved := Resolve(defs, dims)
	assert.Equal(t, "b", resolved["Revenue"].Template)
}

func TestResolve_NoDimensionRefsIsVacuouslyApplicable(t *testing.T) {
	defs := map[string][]rules.Definition{
		"Count": {{Template: "(count)", Score: 50}},
	}
	resolved := Resolve(defs, map[string]rules.BoundDimension{})
	assert.Equal(t, "(count)", resolved["Count"].Template)
}
