// Package apperrors holds the sentinel errors shared across the dashboard
// rule engine. Components wrap these with fmt.Errorf("%w", ...) rather than
// inventing ad-hoc error strings, so callers can distinguish the documented
// "absent result" cases from a genuine collaborator failure.
package apperrors

import "errors"

var (
	// ErrNoApplicableRule is returned when no loaded rule's table_type is an
	// ancestor of the root table's entity_type. Not a failure: the
	// orchestrator returns it alongside a nil dashboard handle.
	ErrNoApplicableRule = errors.New("xray: no applicable rule for root table")

	// ErrNoCardsSurvived is returned when every card yielded zero
	// instantiations or all instantiations were denied by the access
	// policy. Same absent-result contract as ErrNoApplicableRule.
	ErrNoCardsSurvived = errors.New("xray: all card instantiations were empty or denied")

	// ErrUnknownType is returned by the type lattice when a rule references
	// a semantic type that was never declared — the lattice is closed-world.
	ErrUnknownType = errors.New("xray: unknown semantic type")

	// ErrTableNotFound and ErrFieldNotFound surface a catalog adapter
	// lookup miss; catalog failures propagate to the caller unchanged.
	ErrTableNotFound = errors.New("xray: table not found")
	ErrFieldNotFound = errors.New("xray: field not found")

	// ErrMalformedRule describes a rule that references an identifier
	// (dimension/metric/filter) that was never defined. No component in
	// this module returns it: the card expander skips a metric or filter
	// identifier that has no definition.
	ErrMalformedRule = errors.New("xray: rule references an undefined identifier")
)
