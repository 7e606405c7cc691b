package xray

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/xray-engine/pkg/queryast"
)

func TestAllowAllPolicy_AlwaysPermits(t *testing.T) {
	var p AllowAllPolicy
	assert.True(t, p.HasPermission(queryast.Query{}, Permissions{}))
	assert.True(t, p.HasPermission(queryast.Query{Native: &queryast.NativeQuery{Query: "select 1"}}, Permissions{Roles: []string{"admin"}}))
}
