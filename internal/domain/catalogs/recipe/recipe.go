// Package recipe validates proportion-weighted component lists shared by
// the yarn and fabric catalogs.
package recipe

import (
	"github.com/shopspring/decimal"

	"mecsa/internal/core/apperror"
)

var hundred = decimal.NewFromInt(100)

// Component is one recipe line.
type Component interface {
	// ComponentKey identifies the component within the recipe
	// (fiber id or yarn id plus ply count).
	ComponentKey() string
	// ComponentProportion is the percentage share of the component.
	ComponentProportion() decimal.Decimal
}

// Validate checks that proportions sum to exactly 100 and components are
// unique. An empty recipe is rejected.
func Validate[T Component](rows []T) error {
	if len(rows) == 0 {
		return apperror.NewUnprocessable(apperror.CodeRecipeInvalid, "recipe has no components")
	}

	sum := decimal.Zero
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		key := row.ComponentKey()
		if _, dup := seen[key]; dup {
			return apperror.NewUnprocessable(apperror.CodeRecipeInvalid,
				"recipe component repeated").WithDetail("component", key)
		}
		seen[key] = struct{}{}

		p := row.ComponentProportion()
		if p.LessThanOrEqual(decimal.Zero) {
			return apperror.NewUnprocessable(apperror.CodeRecipeInvalid,
				"recipe proportion must be positive").WithDetail("component", key)
		}
		sum = sum.Add(p)
	}

	if !sum.Equal(hundred) {
		return apperror.NewUnprocessable(apperror.CodeRecipeInvalid,
			"recipe proportions must sum to 100").
			WithDetail("sum", sum.String())
	}
	return nil
}

// SameSet reports whether two recipes hold the same component keys with the
// same proportions, regardless of order. Used by uniqueness checks.
func SameSet[A Component, B Component](a []A, b []B) bool {
	if len(a) != len(b) {
		return false
	}
	byKey := make(map[string]decimal.Decimal, len(a))
	for _, row := range a {
		byKey[row.ComponentKey()] = row.ComponentProportion()
	}
	for _, row := range b {
		p, ok := byKey[row.ComponentKey()]
		if !ok || !p.Equal(row.ComponentProportion()) {
			return false
		}
	}
	return true
}
