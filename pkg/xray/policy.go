package xray

import "github.com/ekaya-inc/xray-engine/pkg/queryast"

// AllowAllPolicy is a no-op AccessPolicy that admits every query. It exists
// so a caller with no row/column security model of its own (the demo binary,
// most tests) can drive Generate without writing a stub.
type AllowAllPolicy struct{}

// HasPermission always returns true.
func (AllowAllPolicy) HasPermission(queryast.Query, Permissions) bool {
	return true
}
