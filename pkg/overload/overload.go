// Package overload implements the overload resolver (spec C6): choosing
// among a rule's overloaded metric/filter definitions for a given
// identifier, once the dimensions they reference have been bound.
//
// Grounded on a relationship service's relationship_candidate.go scoring/tie-break
// idiom, generalized from "best FK relationship" to "best metric or
// filter definition" over the same applicable/highest-score shape.
package overload

import "github.com/ekaya-inc/xray-engine/pkg/rules"

// Resolve picks one Definition per identifier out of defsByID, given the
// bound dimensions in scope (spec §4.5):
//
//   - a definition is applicable iff every dimension it references has a
//     non-empty Matches set;
//   - exactly one applicable -> that one;
//   - multiple applicable -> the highest score;
//   - none applicable -> the highest score among the lot, as a fallback
//     the caller (the card expander) may still discard downstream.
//
// A definition with no entries in DimensionRefs is vacuously applicable.
func Resolve(defsByID map[string][]rules.Definition, dims map[string]rules.BoundDimension) map[string]rules.Definition {
	out := make(map[string]rules.Definition, len(defsByID))
	for id, defs := range defsByID {
		if len(defs) == 0 {
			continue
		}
		out[id] = best(defs, dims)
	}
	return out
}

func best(defs []rules.Definition, dims map[string]rules.BoundDimension) rules.Definition {
	var applicable []rules.Definition
	for _, d := range defs {
		if isApplicable(d, dims) {
			applicable = append(applicable, d)
		}
	}
	if len(applicable) == 1 {
		return applicable[0]
	}
	pool := applicable
	if len(pool) == 0 {
		pool = defs
	}
	return highestScore(pool)
}

func isApplicable(d rules.Definition, dims map[string]rules.BoundDimension) bool {
	for _, ref := range d.DimensionRefs {
		if len(dims[ref].Matches) == 0 {
			return false
		}
	}
	return true
}

// highestScore returns the first definition with the maximum score,
// breaking ties by first-seen order (spec §4.4's tie-break rule, reused
// here per §4.5's "highest score" wording).
func highestScore(defs []rules.Definition) rules.Definition {
	best := defs[0]
	for _, d := range defs[1:] {
		if d.Score > best.Score {
			best = d
		}
	}
	return best
}
